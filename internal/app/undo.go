package app

import (
	"context"
	"fmt"

	"github.com/GideonBear/falconf/internal/engine"
	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/pieces"
)

// UndoRequest selects the records to undo.
type UndoRequest struct {
	Refs []ledger.PieceRef

	// DoneHere records the undo on this machine without running it.
	DoneHere bool
}

// Undo marks records for undo everywhere and undoes them here.
//
// Every record is checked before any is marked: already-marked records and
// commands without an undo command are rejected. A failing undo still
// pushes the marks.
func (s *Service) Undo(ctx context.Context, req UndoRequest) (engine.Report, error) {
	if err := s.inst.PullAndRead(ctx, true); err != nil {
		return engine.Report{}, fmt.Errorf("undo: %w", err)
	}
	records, err := s.ledger().ResolveAll(req.Refs)
	if err != nil {
		return engine.Report{}, fmt.Errorf("undo: %w", err)
	}
	for _, r := range records {
		if r.MarkedForUndo() {
			return engine.Report{}, fmt.Errorf("undo: piece %s is already marked for undo", r.ID())
		}
		if p := r.Piece(); p.Command != nil && p.Command.Undo == "" {
			return engine.Report{}, fmt.Errorf("undo: piece %s: %w; set one with `falconf edit %s --undo <command>`", r.ID(), pieces.ErrUndefinedUndo, r.ID())
		}
	}
	for _, r := range records {
		if err := r.MarkForUndo(); err != nil {
			return engine.Report{}, fmt.Errorf("undo: %w", err)
		}
	}

	ectx := s.execContext()
	if req.DoneHere {
		ectx = ectx.WithTestRun()
	}
	report, runErr := s.run(ctx, "undo", ectx, records)

	msg := fmt.Sprintf("Undo %s", idList(records))
	if err := s.push(ctx, msg, nil, runErr); err != nil {
		return report, fmt.Errorf("undo: %w", err)
	}
	return report, nil
}
