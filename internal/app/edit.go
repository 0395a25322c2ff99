package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/GideonBear/falconf/internal/ledger"
)

// EditRequest lists the changes to one record. The flags in each pair
// are mutually exclusive.
type EditRequest struct {
	Ref ledger.PieceRef

	Comment       *string
	RemoveComment bool

	Undo       *string
	RemoveUndo bool
}

type editOp struct {
	name  string
	apply func(r *ledger.Record) error
}

func (req EditRequest) ops() ([]editOp, error) {
	if req.Comment != nil && req.RemoveComment {
		return nil, errors.New("--comment and --remove-comment are mutually exclusive")
	}
	if req.Undo != nil && req.RemoveUndo {
		return nil, errors.New("--undo and --remove-undo are mutually exclusive")
	}

	var ops []editOp
	if req.Comment != nil {
		comment := *req.Comment
		ops = append(ops, editOp{"set comment", func(r *ledger.Record) error {
			r.SetComment(comment)
			return nil
		}})
	}
	if req.RemoveComment {
		ops = append(ops, editOp{"remove comment", func(r *ledger.Record) error {
			r.SetComment("")
			return nil
		}})
	}
	if req.Undo != nil {
		undo := *req.Undo
		ops = append(ops, editOp{"set undo", func(r *ledger.Record) error {
			if undo == "" {
				return fmt.Errorf("%w: empty undo command; use --remove-undo", ledger.ErrInvalidPiece)
			}
			return r.SetCommandUndo(undo)
		}})
	}
	if req.RemoveUndo {
		ops = append(ops, editOp{"remove undo", func(r *ledger.Record) error {
			return r.SetCommandUndo("")
		}})
	}
	if len(ops) == 0 {
		return nil, errors.New("nothing to edit")
	}
	return ops, nil
}

// Edit applies the requested changes in order. When one fails the ones
// already applied are pushed and the error is returned.
func (s *Service) Edit(ctx context.Context, req EditRequest) error {
	ops, err := req.ops()
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	if err := s.inst.PullAndRead(ctx, true); err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	r, err := s.ledger().Resolve(req.Ref)
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}

	var opErr error
	for _, op := range ops {
		if err := op.apply(r); err != nil {
			opErr = fmt.Errorf("%s on %s: %w", op.name, r.ID(), err)
			break
		}
		s.logger.Info("edited piece", "id", r.ID().String(), "op", op.name)
	}

	if err := s.push(ctx, fmt.Sprintf("Edit %s", r.ID()), nil, opErr); err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	return nil
}
