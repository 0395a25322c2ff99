package app

import (
	"context"
	"fmt"

	"github.com/GideonBear/falconf/internal/ledger"
)

// Item is one record as shown by list.
type Item struct {
	Record   *ledger.Record
	Hash     string
	Unused   bool
	DoneHere bool
	Todo     ledger.Action
}

// List pulls and returns every record in ledger order.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	if err := s.inst.PullAndRead(ctx, true); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	m := s.inst.Machine()
	records := s.ledger().Records()
	items := make([]Item, len(records))
	for i, r := range records {
		hash, err := ledger.PieceHash(r.Piece())
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		items[i] = Item{
			Record:   r,
			Hash:     hash,
			Unused:   r.Unused(),
			DoneHere: r.DoneOnMachine(m),
			Todo:     r.Todo(m),
		}
	}
	return items, nil
}
