package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/pieces"
	"github.com/GideonBear/falconf/internal/repo"
)

// RemoveRequest selects the records to delete from the ledger.
type RemoveRequest struct {
	Refs []ledger.PieceRef

	// Force removes records that are not unused.
	Force bool
}

// Remove deletes records from the ledger. Without Force every record must
// be unused. The tracked content of an unused file piece is deleted too.
// It returns the ids of the removed records.
func (s *Service) Remove(ctx context.Context, req RemoveRequest) ([]ledger.PieceID, error) {
	if err := s.inst.PullAndRead(ctx, true); err != nil {
		return nil, fmt.Errorf("remove: %w", err)
	}
	records, err := s.ledger().ResolveAll(req.Refs)
	if err != nil {
		return nil, fmt.Errorf("remove: %w", err)
	}
	if !req.Force {
		for _, r := range records {
			if !r.Unused() {
				return nil, fmt.Errorf("remove: piece %s: %w", r.ID(), ErrInUse)
			}
		}
	}

	var changed []string
	for _, r := range records {
		if p := r.Piece(); p.File != nil && r.Unused() {
			tracked := pieces.TrackedPath(s.inst.Repository().FilesDir(), p.File)
			switch err := os.Remove(tracked); {
			case err == nil:
				changed = append(changed, path.Join(repo.FilesDir, p.File.RelativeLocation()))
			case !errors.Is(err, fs.ErrNotExist):
				return nil, fmt.Errorf("remove: %w", err)
			}
		}
		if err := s.ledger().Remove(r.ID()); err != nil {
			return nil, fmt.Errorf("remove: %w", err)
		}
		s.logger.Info("removed piece", "id", r.ID().String(), "forced", req.Force && !r.Unused())
	}

	if err := s.push(ctx, fmt.Sprintf("Remove %s", idList(records)), changed, nil); err != nil {
		return nil, fmt.Errorf("remove: %w", err)
	}
	ids := make([]ledger.PieceID, len(records))
	for i, r := range records {
		ids[i] = r.ID()
	}
	return ids, nil
}
