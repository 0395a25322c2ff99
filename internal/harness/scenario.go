package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GideonBear/falconf/internal/ledger"
)

// Scenario defines a multi-machine test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Machines are initialized in order; the first one creates the
	// repository, the others join it.
	Machines []MachineSpec `yaml:"machines"`

	// Flow contains the operations to run.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// MachineSpec configures one simulated machine.
type MachineSpec struct {
	Name string `yaml:"name"`

	// FailOn makes every command with an argument containing one of these
	// strings fail.
	FailOn []string `yaml:"fail_on,omitempty"`

	// Answers scripts the machine's confirmations; unanswered questions
	// get no.
	Answers []bool `yaml:"answers,omitempty"`

	// TestRun marks pieces as done without running them.
	TestRun bool `yaml:"test_run,omitempty"`
}

// Step is one operation on one machine.
type Step struct {
	Machine string `yaml:"machine"`
	Op      string `yaml:"op"`

	// Alias names the piece created by an add step.
	Alias    string   `yaml:"alias,omitempty"`
	Kind     string   `yaml:"kind,omitempty"`
	Value    []string `yaml:"value,omitempty"`
	DoneHere bool     `yaml:"done_here,omitempty"`

	// Comment and Undo are set by add and edit steps.
	Comment *string `yaml:"comment,omitempty"`
	Undo    *string `yaml:"undo,omitempty"`

	// Pieces are the aliases (or "-") an undo, remove or edit step acts on.
	Pieces        []string `yaml:"pieces,omitempty"`
	Force         bool     `yaml:"force,omitempty"`
	RemoveComment bool     `yaml:"remove_comment,omitempty"`
	RemoveUndo    bool     `yaml:"remove_undo,omitempty"`

	// Expect is checked against the step's outcome; nil expects success.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a step.
type Expect struct {
	// Error is the expected error class (see ErrorClass); empty for
	// success.
	Error string `yaml:"error,omitempty"`

	// Executed and Undone list aliases in scheduler order.
	Executed []string `yaml:"executed,omitempty"`
	Undone   []string `yaml:"undone,omitempty"`
}

// Assertion validates the state after the flow.
type Assertion struct {
	// Type specifies the assertion type:
	// - "commands": Machine's runner saw exactly Commands
	// - "todo": Machine has to do Todo for Piece
	// - "unused": Piece's unused flag is Unused
	// - "piece_count": Machine's ledger holds Count pieces
	// - "journal_count": Machine's journal holds Count entries (for Piece if set)
	Type string `yaml:"type"`

	Machine  string   `yaml:"machine,omitempty"`
	Piece    string   `yaml:"piece,omitempty"`
	Commands []string `yaml:"commands,omitempty"`
	Todo     string   `yaml:"todo,omitempty"`
	Unused   *bool    `yaml:"unused,omitempty"`
	Count    *int     `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCommands     = "commands"
	AssertTodo         = "todo"
	AssertUnused       = "unused"
	AssertPieceCount   = "piece_count"
	AssertJournalCount = "journal_count"
)

// Step operations.
const (
	OpAdd    = "add"
	OpSync   = "sync"
	OpUndo   = "undo"
	OpRemove = "remove"
	OpEdit   = "edit"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Machines) == 0 {
		return fmt.Errorf("machines list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	machines := make(map[string]bool)
	for i, m := range s.Machines {
		if m.Name == "" {
			return fmt.Errorf("machines[%d]: name is required", i)
		}
		if machines[m.Name] {
			return fmt.Errorf("machines[%d]: duplicate name %q", i, m.Name)
		}
		machines[m.Name] = true
	}

	aliases := make(map[string]bool)
	for i, step := range s.Flow {
		if !machines[step.Machine] {
			return fmt.Errorf("flow[%d]: unknown machine %q", i, step.Machine)
		}
		switch step.Op {
		case OpAdd:
			if step.Alias == "" {
				return fmt.Errorf("flow[%d]: alias is required for add", i)
			}
			if step.Alias == ledger.LastRef || aliases[step.Alias] {
				return fmt.Errorf("flow[%d]: alias %q is reserved or already used", i, step.Alias)
			}
			if len(step.Value) == 0 {
				return fmt.Errorf("flow[%d]: value is required for add", i)
			}
			aliases[step.Alias] = true
		case OpUndo, OpRemove:
			if len(step.Pieces) == 0 {
				return fmt.Errorf("flow[%d]: pieces list is required for %s", i, step.Op)
			}
		case OpEdit:
			if len(step.Pieces) != 1 {
				return fmt.Errorf("flow[%d]: edit takes exactly one piece", i)
			}
		case OpSync:
		default:
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
		for _, p := range step.Pieces {
			if p != ledger.LastRef && !aliases[p] {
				return fmt.Errorf("flow[%d]: unknown piece alias %q", i, p)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, machines, aliases); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, machines, aliases map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if !machines[a.Machine] {
		return fmt.Errorf("assertions[%d]: unknown machine %q", index, a.Machine)
	}
	if a.Piece != "" && !aliases[a.Piece] {
		return fmt.Errorf("assertions[%d]: unknown piece alias %q", index, a.Piece)
	}

	switch a.Type {
	case AssertCommands:
		// An empty list asserts that nothing ran.
	case AssertTodo:
		if a.Piece == "" {
			return fmt.Errorf("assertions[%d]: piece is required for todo", index)
		}
		switch a.Todo {
		case ledger.Execute.String(), ledger.Undo.String(), ledger.Noop.String():
		default:
			return fmt.Errorf("assertions[%d]: todo must be execute, undo or noop", index)
		}
	case AssertUnused:
		if a.Piece == "" || a.Unused == nil {
			return fmt.Errorf("assertions[%d]: piece and unused are required for unused", index)
		}
	case AssertPieceCount, AssertJournalCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
