package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GideonBear/falconf/internal/ledger"
)

// ErrExecutionFailure matches every *ExecutionError.
var ErrExecutionFailure = errors.New("engine: execution failed")

// ExecutionError reports the step that stopped a run.
//
// For a bulk step IDs holds every member of the group, none of which was
// marked. For a non-bulk step it holds the single failing record.
type ExecutionError struct {
	// Action is Execute or Undo.
	Action ledger.Action

	// Kind is the kind of the failing step.
	Kind ledger.Kind

	// IDs identifies the records of the failing step.
	IDs []ledger.PieceID

	// Err is the error returned by the capability.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%s %s [%s]: %v", e.Action, e.Kind, strings.Join(ids, " "), e.Err)
}

// Unwrap exposes both ErrExecutionFailure and the capability error, so
// errors.Is works for either.
func (e *ExecutionError) Unwrap() []error {
	return []error{ErrExecutionFailure, e.Err}
}

// IsExecutionError returns true if err is or wraps an *ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
