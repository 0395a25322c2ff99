package engine

import (
	"context"

	"github.com/GideonBear/falconf/internal/ledger"
)

// Outcome is the result of one record in one step.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Execution describes one record of a finished step.
type Execution struct {
	Seq       int64
	PieceID   ledger.PieceID
	Kind      ledger.Kind
	Action    ledger.Action
	PieceHash string
	Outcome   Outcome
	Error     string
	TestRun   bool
}

// Recorder receives every finished step. Recording errors are logged by
// the scheduler and never change the run.
type Recorder interface {
	RecordExecution(ctx context.Context, e Execution) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, e Execution) error

// RecordExecution implements Recorder.
func (f RecorderFunc) RecordExecution(ctx context.Context, e Execution) error {
	return f(ctx, e)
}
