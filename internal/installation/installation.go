// Package installation manages the per-machine installation root:
//
//	<root>/machine       this machine's id
//	<root>/config.toml   installation config
//	<root>/repository/   working tree of the synchronized repository
//	<root>/journal.db    local execution journal
package installation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GideonBear/falconf/internal/config"
	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/pieces"
	"github.com/GideonBear/falconf/internal/repo"
	"github.com/GideonBear/falconf/internal/store"
)

const (
	MachineFile   = "machine"
	RepositoryDir = "repository"
	JournalFile   = "journal.db"

	// EnvPath overrides the default root.
	EnvPath = "FALCONF_PATH"
)

var (
	// ErrExists is returned by Init when the root already holds files.
	ErrExists = errors.New("installation: already exists")

	// ErrNotInstalled is returned by Open when the root has no installation.
	ErrNotInstalled = errors.New("installation: not installed; run `falconf init` first")
)

// Installation is an opened installation root.
type Installation struct {
	root    string
	machine ledger.Machine
	cfg     config.Config
	repo    *repo.Repository
	journal *store.Store
	logger  *slog.Logger
}

// Options are shared by Init and Open.
type Options struct {
	Logger *slog.Logger

	// Now is the wall clock for journal timestamps; time.Now when nil.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// InitOptions describe a new installation.
type InitOptions struct {
	Options

	Remote string
	New    bool

	// Hostname recorded in the ledger; os.Hostname when empty.
	Hostname string

	// Config is written to config.toml with Remote filled in from above.
	// The zero value means config.Default().
	Config config.Config
}

// ResolveRoot picks the installation root: flag, then $FALCONF_PATH, then
// ~/.falconf. A leading ~ is expanded.
func ResolveRoot(flag string, lookup func(string) (string, bool)) (string, error) {
	path := flag
	if path == "" {
		if v, ok := lookup(EnvPath); ok {
			path = v
		}
	}
	if path == "" {
		path = "~/.falconf"
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve root: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	return abs, nil
}

// Init creates a new installation at root. Whatever it created is
// removed again on failure.
func Init(ctx context.Context, root string, opts InitOptions) (inst *Installation, err error) {
	base := opts.Options.withDefaults()

	entries, err := os.ReadDir(root)
	switch {
	case err == nil && len(entries) > 0:
		return nil, fmt.Errorf("%w at %s", ErrExists, root)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	defer func() {
		if err != nil {
			base.Logger.Info("init failed, removing installation", "root", root)
			if rmErr := os.RemoveAll(root); rmErr != nil {
				err = errors.Join(err, fmt.Errorf("cleanup %s: %w", root, rmErr))
			}
		}
	}()

	hostname := opts.Hostname
	if hostname == "" {
		if hostname, err = os.Hostname(); err != nil {
			return nil, fmt.Errorf("init: hostname: %w", err)
		}
	}

	cfg := opts.Config
	if cfg == (config.Config{}) {
		cfg = config.Default()
	}
	cfg.Remote = opts.Remote
	if cfg.Git.AuthorEmail == "" {
		cfg.Git.AuthorEmail = "falconf@" + hostname
	}
	if err := config.Save(filepath.Join(root, config.FileName), cfg); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	machine := ledger.NewMachine()
	if err := os.WriteFile(filepath.Join(root, MachineFile), []byte(machine.String()+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	r, err := repo.Init(ctx, filepath.Join(root, RepositoryDir), repoOptions(cfg, base.Logger), repo.InitOptions{
		Remote:  opts.Remote,
		New:     opts.New,
		Machine: machine,
		Data:    ledger.NewMachineData(hostname),
	})
	if err != nil {
		return nil, err
	}

	journal, err := store.Open(filepath.Join(root, JournalFile), store.WithNow(base.Now))
	if err != nil {
		return nil, fmt.Errorf("init: journal: %w", err)
	}

	base.Logger.Info("installed", "root", root, "machine", machine.String(), "hostname", hostname)
	return &Installation{
		root:    root,
		machine: machine,
		cfg:     cfg,
		repo:    r,
		journal: journal,
		logger:  base.Logger,
	}, nil
}

// Open opens the installation at root.
func Open(ctx context.Context, root string, opts Options) (*Installation, error) {
	opts = opts.withDefaults()

	machine, err := readMachine(root)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("open installation: %w", err)
	}

	r, err := repo.Open(ctx, filepath.Join(root, RepositoryDir), repoOptions(cfg, opts.Logger))
	if err != nil {
		return nil, fmt.Errorf("open installation: %w", err)
	}

	journal, err := store.Open(filepath.Join(root, JournalFile), store.WithNow(opts.Now))
	if err != nil {
		return nil, fmt.Errorf("open installation: journal: %w", err)
	}

	return &Installation{
		root:    root,
		machine: machine,
		cfg:     cfg,
		repo:    r,
		journal: journal,
		logger:  opts.Logger,
	}, nil
}

func repoOptions(cfg config.Config, logger *slog.Logger) repo.Options {
	return repo.Options{
		Branch:      cfg.Branch,
		AuthorName:  cfg.Git.AuthorName,
		AuthorEmail: cfg.Git.AuthorEmail,
		Logger:      logger,
	}
}

// Close releases the journal.
func (i *Installation) Close() error {
	return i.journal.Close()
}

func (i *Installation) Root() string                 { return i.root }
func (i *Installation) Machine() ledger.Machine      { return i.machine }
func (i *Installation) Config() config.Config        { return i.cfg }
func (i *Installation) Repository() *repo.Repository { return i.repo }
func (i *Installation) Journal() *store.Store        { return i.journal }
func (i *Installation) Ledger() *ledger.Ledger       { return i.repo.Ledger() }

// RepositoryDir returns the working tree path.
func (i *Installation) RepositoryDir() string {
	return filepath.Join(i.root, RepositoryDir)
}

// ExecContext returns the execution context for this machine.
func (i *Installation) ExecContext(testRun bool) pieces.ExecContext {
	return pieces.ExecContext{
		Machine:  i.machine,
		FilesDir: i.repo.FilesDir(),
		TestRun:  testRun,
	}
}

// AptOptions returns how apt pieces run on this machine.
func (i *Installation) AptOptions() pieces.AptOptions {
	return pieces.AptOptions{Program: i.cfg.Apt.Command, Sudo: i.cfg.Apt.Sudo}
}

// PullAndRead pulls the repository. With reportPending it logs what this
// machine still has to do afterwards.
func (i *Installation) PullAndRead(ctx context.Context, reportPending bool) error {
	if _, err := i.repo.Pull(ctx); err != nil {
		return err
	}
	return i.afterPull(reportPending)
}

// PullKeepingLocalAndRead is PullAndRead for publishing edits under
// files/: local versions win over colliding remote changes.
func (i *Installation) PullKeepingLocalAndRead(ctx context.Context, reportPending bool) error {
	if _, err := i.repo.PullKeepingLocal(ctx); err != nil {
		return err
	}
	return i.afterPull(reportPending)
}

func (i *Installation) afterPull(reportPending bool) error {
	if !reportPending {
		return nil
	}
	execute, undo := i.Ledger().Pending(i.machine)
	if len(execute) > 0 || len(undo) > 0 {
		i.logger.Info("this machine is out of date; run `falconf sync`",
			"to_execute", idStrings(execute),
			"to_undo", idStrings(undo))
	}
	return nil
}

func idStrings(records []*ledger.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID().String()
	}
	return out
}
