package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GideonBear/falconf/internal/ledger"
)

// InitOptions select how Init sets up the working tree.
type InitOptions struct {
	// Remote is the clone URL of the shared repository.
	Remote string

	// New initializes an empty remote instead of joining an existing one.
	New bool

	// Machine and Data identify the machine being installed.
	Machine ledger.Machine
	Data    ledger.MachineData
}

const gitkeep = FilesDir + "/.gitkeep"

// Init clones the remote into dir, which must not exist yet.
//
// With New the remote must be empty; the first commit holds files/.gitkeep
// and a ledger listing only this machine. Otherwise the existing ledger is
// validated and this machine is added to it when missing.
func Init(ctx context.Context, dir string, opts Options, init InitOptions) (*Repository, error) {
	opts = opts.withDefaults()
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	parent := NewGit(filepath.Dir(dir))
	if init.New {
		if _, err := parent.Run(ctx, "clone", "--quiet", init.Remote, dir); err != nil {
			return nil, fmt.Errorf("init: clone: %w", err)
		}
		return initNew(ctx, dir, opts, init)
	}

	if _, err := parent.Run(ctx, "clone", "--quiet", "--branch", opts.Branch, init.Remote, dir); err != nil {
		return nil, fmt.Errorf("init: clone: %w", err)
	}
	r, err := Open(ctx, dir, opts)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if r.ledger.AddMachine(init.Machine, init.Data) {
		if _, err := r.WriteAndPush(ctx, fmt.Sprintf("Add machine %s", init.Data.Hostname), nil); err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}
	}
	return r, nil
}

func initNew(ctx context.Context, dir string, opts Options, init InitOptions) (*Repository, error) {
	r := &Repository{
		git:    NewGit(dir),
		dir:    dir,
		opts:   opts,
		ledger: ledger.New(),
		logger: opts.Logger.With("repo", dir),
	}

	heads, err := r.git.Output(ctx, "ls-remote", "--heads", remoteName)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if heads != "" {
		return nil, fmt.Errorf("init: %w; use init without --new to join it", ErrRemoteNotEmpty)
	}
	if _, err := r.git.Run(ctx, "symbolic-ref", "HEAD", "refs/heads/"+opts.Branch); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := os.MkdirAll(r.FilesDir(), 0o755); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(gitkeep)), nil, 0o644); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := r.ensureIdentity(ctx); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	r.ledger.AddMachine(init.Machine, init.Data)
	if _, err := r.WriteAndPush(ctx, "Initialize falconf repository", []string{gitkeep}); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return r, nil
}
