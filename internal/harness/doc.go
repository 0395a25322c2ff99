// Package harness runs multi-machine falconf scenarios.
//
// A scenario sets up a bare git remote and several installations sharing
// it, then drives operations on them step by step. Commands never run:
// every machine has a fake command runner and a scripted prompter.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	machines:
//	  - name: a            # the first machine creates the repository
//	  - name: b
//	    fail_on: [ripgrep] # commands containing this argument fail
//	flow:
//	  - machine: a
//	    op: add
//	    alias: x
//	    kind: command
//	    value: ["touch /tmp/x"]
//	    undo: "rm /tmp/x"
//	    expect:
//	      executed: [x]
//	  - machine: a
//	    op: remove
//	    pieces: [x]
//	    expect:
//	      error: in_use
//	assertions:
//	  - type: commands
//	    machine: a
//	    commands: ["bash -c touch /tmp/x"]
//	  - type: todo
//	    machine: b
//	    piece: x
//	    todo: execute
//
// Pieces are referred to by alias; "-" is the last piece.
//
// # Assertion Types
//
//   - commands: the exact command lines a machine's runner saw
//   - todo: what a machine has to do for a piece after pulling
//   - unused: whether a piece is unused
//   - piece_count: number of pieces in the ledger
//   - journal_count: number of journal entries on a machine, optionally for one piece
//
// # Deterministic Testing
//
// Traces name pieces by alias and carry no ids or timestamps, so they can
// be compared against golden files:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/undo_lifecycle.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
package harness
