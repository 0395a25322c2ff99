package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/pieces"
)

// Report lists the records a run marked, in the order they were marked.
type Report struct {
	Executed []ledger.PieceID
	Undone   []ledger.PieceID
}

// Empty reports whether the run marked nothing.
func (r Report) Empty() bool {
	return len(r.Executed) == 0 && len(r.Undone) == 0
}

// Scheduler executes the pending steps of one machine.
//
// A Scheduler is not safe for concurrent use; one operation owns it.
type Scheduler struct {
	caps     Capabilities
	clock    *Clock
	recorder Recorder
	logger   *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock sets the clock used to stamp steps.
func WithClock(c *Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithRecorder sets the recorder that receives every finished step.
func WithRecorder(r Recorder) SchedulerOption {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a scheduler dispatching to caps.
func NewScheduler(caps Capabilities, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		caps:   caps,
		clock:  NewClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clock returns the scheduler's clock.
func (s *Scheduler) Clock() *Clock {
	return s.clock
}

// stepResult is the outcome of running one step, before any mark.
type stepResult struct {
	step Step
	err  error
}

// Run executes and undoes everything ectx.Machine owes for records and
// marks the records that succeeded.
//
// On failure Run returns the records marked so far together with an
// *ExecutionError for the failing step. Later steps are not attempted.
func (s *Scheduler) Run(ctx context.Context, ectx pieces.ExecContext, records []*ledger.Record) (Report, error) {
	var report Report

	steps, err := Schedule(s.caps, records, ectx.Machine)
	if err != nil {
		return report, err
	}
	if len(steps) == 0 {
		s.logger.Debug("nothing to do", "machine", ectx.Machine)
		return report, nil
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("run: %w", err)
		}
		res := s.runStep(ctx, ectx, step)
		s.record(ctx, ectx, res)
		if res.err != nil {
			return report, &ExecutionError{
				Action: step.Action,
				Kind:   step.Kind,
				IDs:    step.IDs(),
				Err:    res.err,
			}
		}
		if err := s.apply(ectx.Machine, res, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *Scheduler) runStep(ctx context.Context, ectx pieces.ExecContext, step Step) stepResult {
	logger := s.logger.With("action", step.Action.String(), "kind", string(step.Kind), "ids", step.IDs())
	if ectx.TestRun {
		logger.Info("test run, skipping")
		return stepResult{step: step}
	}

	c, err := s.caps.Lookup(step.Kind)
	if err != nil {
		return stepResult{step: step, err: err}
	}

	if step.Bulk {
		logger.Info("running bulk group", "count", len(step.Records))
		b := c.(pieces.Bulk)
		group := make([]ledger.Piece, len(step.Records))
		for i, r := range step.Records {
			group[i] = r.Piece()
		}
		if step.Action == ledger.Undo {
			err = b.UndoBulk(ctx, ectx, group)
		} else {
			err = b.ExecuteBulk(ctx, ectx, group)
		}
	} else {
		logger.Info("running piece", "piece", step.Records[0].Piece().String())
		single := c.(pieces.Single)
		if step.Action == ledger.Undo {
			err = single.Undo(ctx, ectx, step.Records[0].Piece())
		} else {
			err = single.Execute(ctx, ectx, step.Records[0].Piece())
		}
	}
	if err != nil {
		logger.Warn("step failed", "error", err)
	}
	return stepResult{step: step, err: err}
}

// apply marks every record of a successful step.
func (s *Scheduler) apply(m ledger.Machine, res stepResult, report *Report) error {
	for _, r := range res.step.Records {
		switch res.step.Action {
		case ledger.Execute:
			r.MarkExecuted(m)
			report.Executed = append(report.Executed, r.ID())
		case ledger.Undo:
			if err := r.MarkUndone(m); err != nil {
				return fmt.Errorf("apply %s: %w", r.ID(), err)
			}
			report.Undone = append(report.Undone, r.ID())
		}
	}
	return nil
}

func (s *Scheduler) record(ctx context.Context, ectx pieces.ExecContext, res stepResult) {
	if s.recorder == nil {
		return
	}
	outcome, msg := OutcomeSuccess, ""
	if res.err != nil {
		outcome, msg = OutcomeFailure, res.err.Error()
	}
	for _, r := range res.step.Records {
		hash, err := ledger.PieceHash(r.Piece())
		if err != nil {
			s.logger.Warn("hash piece", "id", r.ID().String(), "error", err)
		}
		e := Execution{
			Seq:       s.clock.Next(),
			PieceID:   r.ID(),
			Kind:      r.Kind(),
			Action:    res.step.Action,
			PieceHash: hash,
			Outcome:   outcome,
			Error:     msg,
			TestRun:   ectx.TestRun,
		}
		if err := s.recorder.RecordExecution(ctx, e); err != nil {
			s.logger.Warn("record execution", "id", r.ID().String(), "error", err)
		}
	}
}
