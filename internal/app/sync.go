package app

import (
	"context"
	"fmt"

	"github.com/GideonBear/falconf/internal/engine"
)

// Sync pulls, applies everything this machine owes and pushes the marks.
// A run that fails partway still pushes the records it marked.
func (s *Service) Sync(ctx context.Context) (engine.Report, error) {
	if err := s.inst.PullAndRead(ctx, false); err != nil {
		return engine.Report{}, fmt.Errorf("sync: %w", err)
	}
	if err := s.ensureMachine(); err != nil {
		return engine.Report{}, fmt.Errorf("sync: %w", err)
	}

	report, runErr := s.run(ctx, "sync", s.execContext(), s.ledger().Records())
	if runErr != nil {
		s.logger.Error("sync stopped", "error", runErr, "executed", len(report.Executed), "undone", len(report.Undone))
	} else {
		s.logger.Info("sync finished", "executed", len(report.Executed), "undone", len(report.Undone))
	}

	msg := fmt.Sprintf("Sync %s: executed %d, undone %d", s.machineName(), len(report.Executed), len(report.Undone))
	if err := s.push(ctx, msg, nil, runErr); err != nil {
		return report, fmt.Errorf("sync: %w", err)
	}
	return report, nil
}
