// Package ledger holds the replicated state of a falconf repository.
//
// A Ledger is an ordered list of Records plus descriptive data for every
// machine that ever joined. Each Record wraps one Piece (the declared
// action) and tracks on which machines it has been executed and, once it
// is marked for undo, on which machines it has been undone.
//
// # Lifecycle
//
// Record.Todo maps (record, machine) to Execute, Undo or Noop:
//
//	done here | undo state          | result
//	no        | active              | Execute
//	no        | marked for undo     | Noop
//	yes       | active              | Noop
//	yes       | marked, not undone  | Undo
//	yes       | marked, undone here | Noop
//
// Undo state is either active or MarkedForUndo with its own undone_on set.
// undone_on only grows through MarkUndone, which requires the machine to be
// in done_on, so a machine can never be undone without having been done.
//
// # Serialization
//
// The ledger file is YAML (ledger.yaml). Decode checks it against an
// embedded CUE schema before building Records, and rejects files that break
// the undone_on ⊆ done_on invariant.
package ledger
