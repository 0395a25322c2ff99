package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// State is the synchronization state of a working tree.
type State int

const (
	Clean State = iota
	Diverged
	Corrupt
)

func (s State) String() string {
	switch s {
	case Diverged:
		return "diverged"
	case Corrupt:
		return "corrupt"
	default:
		return "clean"
	}
}

// Status describes a working tree relative to the remote branch.
type Status struct {
	State  State
	Head   string
	Ahead  int // local commits not on the remote
	Behind int // remote commits not yet pulled
}

// Inspect fetches the remote branch and reports the state of the working
// tree at dir without modifying it.
func Inspect(ctx context.Context, dir string, opts Options) (Status, error) {
	opts = opts.withDefaults()
	r := &Repository{git: NewGit(dir), dir: dir, opts: opts, logger: opts.Logger}

	if err := r.checkCorrupt(ctx); err != nil {
		if errors.Is(err, ErrCorrupt) {
			return Status{State: Corrupt}, nil
		}
		return Status{}, err
	}

	if _, err := r.git.Run(ctx, "fetch", remoteName, opts.Branch); err != nil {
		return Status{}, fmt.Errorf("inspect: %w", err)
	}
	local, err := r.git.Output(ctx, "rev-parse", "HEAD")
	if err != nil {
		return Status{}, fmt.Errorf("inspect: %w", err)
	}
	remote, err := r.git.Output(ctx, "rev-parse", "FETCH_HEAD")
	if err != nil {
		return Status{}, fmt.Errorf("inspect: %w", err)
	}

	st := Status{Head: local}
	if st.Ahead, err = r.count(ctx, remote+".."+local); err != nil {
		return Status{}, fmt.Errorf("inspect: %w", err)
	}
	if st.Behind, err = r.count(ctx, local+".."+remote); err != nil {
		return Status{}, fmt.Errorf("inspect: %w", err)
	}
	analysis, err := r.analyze(ctx, local, remote)
	if err != nil {
		return Status{}, fmt.Errorf("inspect: %w", err)
	}
	if analysis == diverged {
		st.State = Diverged
	}
	return st, nil
}

func (r *Repository) count(ctx context.Context, rng string) (int, error) {
	out, err := r.git.Output(ctx, "rev-list", "--count", rng)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(out)
}
