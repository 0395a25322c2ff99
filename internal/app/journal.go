package app

import (
	"context"

	"github.com/GideonBear/falconf/internal/engine"
	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/pieces"
	"github.com/GideonBear/falconf/internal/store"
)

// journalRecorder writes scheduler steps into one journal run.
type journalRecorder struct {
	journal *store.Store
	runID   int64
}

func (j journalRecorder) RecordExecution(ctx context.Context, e engine.Execution) error {
	return j.journal.WriteExecution(ctx, store.Execution{
		Seq:       e.Seq,
		RunID:     j.runID,
		PieceID:   e.PieceID.String(),
		Kind:      string(e.Kind),
		Action:    e.Action.String(),
		PieceHash: e.PieceHash,
		Outcome:   string(e.Outcome),
		Error:     e.Error,
	})
}

// run executes records through the scheduler inside a journal run.
// Journal failures are logged and never fail the operation.
func (s *Service) run(ctx context.Context, operation string, ectx pieces.ExecContext, records []*ledger.Record) (engine.Report, error) {
	opts := []engine.SchedulerOption{engine.WithLogger(s.logger)}

	journal := s.inst.Journal()
	runID, err := journal.BeginRun(ctx, operation, ectx.Machine.String(), ectx.TestRun)
	if err != nil {
		s.logger.Warn("journal unavailable", "error", err)
	} else {
		seq, err := journal.MaxSeq(ctx)
		if err != nil {
			s.logger.Warn("journal unavailable", "error", err)
		}
		opts = append(opts,
			engine.WithClock(engine.NewClockAt(seq)),
			engine.WithRecorder(journalRecorder{journal: journal, runID: runID}),
		)
	}

	report, runErr := engine.NewScheduler(s.caps, opts...).Run(ctx, ectx, records)

	if runID != 0 {
		if err := journal.FinishRun(ctx, runID, runErr); err != nil {
			s.logger.Warn("close journal run", "error", err)
		}
	}
	return report, runErr
}
