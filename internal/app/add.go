package app

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/pieces"
	"github.com/GideonBear/falconf/internal/repo"
)

// AddRequest describes a new piece.
type AddRequest struct {
	Spec    pieces.Spec
	Comment string

	// DoneHere records the piece as already done on this machine without
	// executing it.
	DoneHere bool
}

// Add creates a record, executes it here unless DoneHere, and pushes it.
//
// When execution fails the record is not added and nothing is pushed.
// A file piece adopts the current content of its location into files/.
func (s *Service) Add(ctx context.Context, req AddRequest) (*ledger.Record, error) {
	if err := s.inst.PullAndRead(ctx, true); err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	piece, err := pieces.Build(req.Spec, s.logger)
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}
	rec, err := ledger.NewRecord(s.ledger().NewID(), piece, req.Comment)
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	var changed []string
	adoptedPath := ""
	if piece.File != nil {
		target, adopted, err := pieces.Adopt(s.inst.Repository().FilesDir(), piece.File)
		if err != nil {
			return nil, fmt.Errorf("add: %w", err)
		}
		if adopted {
			adoptedPath = target
			s.logger.Info("tracking file", "location", piece.File.Location, "copy", target)
		}
		changed = append(changed, path.Join(repo.FilesDir, piece.File.RelativeLocation()))
	}

	if req.DoneHere {
		rec.MarkExecuted(s.inst.Machine())
	} else if _, err := s.run(ctx, "add", s.execContext(), []*ledger.Record{rec}); err != nil {
		if adoptedPath != "" {
			if rmErr := os.Remove(adoptedPath); rmErr != nil {
				s.logger.Warn("remove adopted copy", "path", adoptedPath, "error", rmErr)
			}
		}
		return nil, fmt.Errorf("add: %w", err)
	}

	if err := s.ensureMachine(); err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}
	if err := s.ledger().Append(rec); err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}
	msg := fmt.Sprintf("Add %s: %s", rec.ID(), rec.Piece())
	if err := s.push(ctx, msg, changed, nil); err != nil {
		return rec, fmt.Errorf("add: %w", err)
	}
	s.logger.Info("added piece", "id", rec.ID().String())
	return rec, nil
}
