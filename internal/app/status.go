package app

import (
	"context"
	"fmt"

	"github.com/GideonBear/falconf/internal/installation"
	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/repo"
)

// StatusReport describes an installation without changing it.
type StatusReport struct {
	Root     string
	Machine  ledger.Machine
	Hostname string
	Remote   string
	Repo     repo.Status

	// Pending work as of the local ledger; empty when the repository is
	// corrupt.
	ToExecute []ledger.PieceID
	ToUndo    []ledger.PieceID
}

// Status inspects the installation at root. It works on corrupt
// repositories, which Open refuses.
func Status(ctx context.Context, root string, opts installation.Options) (StatusReport, error) {
	probe, err := installation.Inspect(ctx, root, opts)
	if err != nil {
		return StatusReport{}, fmt.Errorf("status: %w", err)
	}
	st := StatusReport{
		Root:    probe.Root,
		Machine: probe.Machine,
		Remote:  probe.Config.Remote,
		Repo:    probe.Repo,
	}
	if probe.Repo.State == repo.Corrupt {
		return st, nil
	}

	inst, err := installation.Open(ctx, root, opts)
	if err != nil {
		return StatusReport{}, fmt.Errorf("status: %w", err)
	}
	defer inst.Close()

	if data, ok := inst.Ledger().Machine(inst.Machine()); ok {
		st.Hostname = data.Hostname
	}
	execute, undo := inst.Ledger().Pending(inst.Machine())
	for _, r := range execute {
		st.ToExecute = append(st.ToExecute, r.ID())
	}
	for _, r := range undo {
		st.ToUndo = append(st.ToUndo, r.ID())
	}
	return st, nil
}
