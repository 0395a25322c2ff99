package installation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/GideonBear/falconf/internal/config"
	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/repo"
)

// Probe is what can be learned about an installation without opening its
// repository, so it also works when the repository is corrupt.
type Probe struct {
	Root    string
	Machine ledger.Machine
	Config  config.Config
	Repo    repo.Status
}

// Inspect reads the machine id and config at root and inspects the
// repository against its remote.
func Inspect(ctx context.Context, root string, opts Options) (Probe, error) {
	opts = opts.withDefaults()

	machine, err := readMachine(root)
	if err != nil {
		return Probe{}, err
	}
	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return Probe{}, fmt.Errorf("inspect installation: %w", err)
	}
	st, err := repo.Inspect(ctx, filepath.Join(root, RepositoryDir), repoOptions(cfg, opts.Logger))
	if err != nil {
		return Probe{}, fmt.Errorf("inspect installation: %w", err)
	}
	return Probe{Root: root, Machine: machine, Config: cfg, Repo: st}, nil
}

func readMachine(root string) (ledger.Machine, error) {
	raw, err := os.ReadFile(filepath.Join(root, MachineFile))
	if errors.Is(err, fs.ErrNotExist) {
		return ledger.Machine{}, fmt.Errorf("%w (looked in %s)", ErrNotInstalled, root)
	}
	if err != nil {
		return ledger.Machine{}, fmt.Errorf("open installation: %w", err)
	}
	machine, err := ledger.ParseMachine(strings.TrimSpace(string(raw)))
	if err != nil {
		return ledger.Machine{}, fmt.Errorf("open installation: machine file: %w", err)
	}
	return machine, nil
}
