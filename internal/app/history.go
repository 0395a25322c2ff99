package app

import (
	"context"
	"fmt"

	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/store"
)

// HistoryRequest filters the journal.
type HistoryRequest struct {
	// Piece limits the history to one record; "" for all.
	Piece string
	Limit int
}

// History lists journal entries of this machine, newest first. It reads
// the local journal only and does not pull.
func (s *Service) History(ctx context.Context, req HistoryRequest) ([]store.Entry, error) {
	f := store.Filter{Limit: req.Limit}
	if req.Piece != "" {
		ref, err := ledger.ParsePieceRef(req.Piece)
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		// Removed records keep their history, so only "-" needs the ledger.
		f.PieceID = ref.String()
		if ref.IsLast() {
			r, err := s.ledger().Resolve(ref)
			if err != nil {
				return nil, fmt.Errorf("history: %w", err)
			}
			f.PieceID = r.ID().String()
		}
	}
	entries, err := s.inst.Journal().ReadEntries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return entries, nil
}
