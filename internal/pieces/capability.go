package pieces

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GideonBear/falconf/internal/ledger"
)

var (
	// ErrUndefinedUndo is returned when a piece has no way to be undone,
	// such as a command piece without an undo command.
	ErrUndefinedUndo = errors.New("pieces: undo is not defined")

	// ErrDeclined is returned when the operator answers no to a prompt.
	ErrDeclined = errors.New("pieces: declined by user")

	// ErrUnknownKind is returned by Registry.Lookup for unregistered kinds.
	ErrUnknownKind = errors.New("pieces: no capability registered for kind")
)

// ExecContext is the immutable execution environment of one operation.
type ExecContext struct {
	// Machine is the machine the pieces run on.
	Machine ledger.Machine

	// FilesDir is the absolute path of the repository's files/ directory.
	FilesDir string

	// TestRun skips side effects while still recording success.
	TestRun bool
}

// WithTestRun returns a copy of c with TestRun set.
func (c ExecContext) WithTestRun() ExecContext {
	c.TestRun = true
	return c
}

// Capability is implemented by every kind.
type Capability interface {
	Kind() ledger.Kind
}

// Bulk kinds execute and undo a group of pieces as one operation.
type Bulk interface {
	Capability
	ExecuteBulk(ctx context.Context, ectx ExecContext, group []ledger.Piece) error
	UndoBulk(ctx context.Context, ectx ExecContext, group []ledger.Piece) error
}

// Single kinds execute and undo one piece at a time.
type Single interface {
	Capability
	Execute(ctx context.Context, ectx ExecContext, piece ledger.Piece) error
	Undo(ctx context.Context, ectx ExecContext, piece ledger.Piece) error
}

// Registry maps kinds to their capability.
type Registry struct {
	caps map[ledger.Kind]Capability
}

// NewRegistry registers the given capabilities.
func NewRegistry(caps ...Capability) *Registry {
	r := &Registry{caps: make(map[ledger.Kind]Capability, len(caps))}
	for _, c := range caps {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the capability for c.Kind().
func (r *Registry) Register(c Capability) {
	r.caps[c.Kind()] = c
}

// Lookup returns the capability for kind.
func (r *Registry) Lookup(kind ledger.Kind) (Capability, error) {
	c, ok := r.caps[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	return c, nil
}

// NewDefaultRegistry registers the four built-in kinds.
func NewDefaultRegistry(runner CommandRunner, prompter Prompter, apt AptOptions, logger *slog.Logger) *Registry {
	return NewRegistry(
		NewAptKind(runner, apt, logger),
		NewCommandKind(runner, logger),
		NewFileKind(prompter, logger),
		NewManualKind(prompter),
	)
}
