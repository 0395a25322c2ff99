package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GideonBear/falconf/internal/ledger"
)

const (
	// DefaultBranch is the branch used when Options.Branch is empty.
	DefaultBranch = "main"

	// FilesDir is the tracked-files subtree, relative to the working tree.
	FilesDir = "files"

	remoteName = "origin"
)

// Options configure a Repository.
type Options struct {
	// Branch is the single shared branch.
	Branch string

	// AuthorName and AuthorEmail are set as the local commit identity
	// when git has none configured.
	AuthorName  string
	AuthorEmail string

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Branch == "" {
		o.Branch = DefaultBranch
	}
	if o.AuthorName == "" {
		o.AuthorName = "falconf"
	}
	if o.AuthorEmail == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "localhost"
		}
		o.AuthorEmail = "falconf@" + host
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Repository is an open working tree and the ledger read from it.
type Repository struct {
	git    *Git
	dir    string
	opts   Options
	ledger *ledger.Ledger
	logger *slog.Logger
}

// Open opens the working tree at dir. It fails with ErrCorrupt when the
// ledger on disk is not the committed one.
func Open(ctx context.Context, dir string, opts Options) (*Repository, error) {
	opts = opts.withDefaults()
	r := &Repository{
		git:    NewGit(dir),
		dir:    dir,
		opts:   opts,
		logger: opts.Logger.With("repo", dir),
	}
	if err := r.checkCorrupt(ctx); err != nil {
		return nil, err
	}
	if err := r.readLedger(); err != nil {
		return nil, err
	}
	if err := r.ensureIdentity(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the working tree path.
func (r *Repository) Dir() string { return r.dir }

// FilesDir returns the absolute path of files/.
func (r *Repository) FilesDir() string { return filepath.Join(r.dir, FilesDir) }

// Branch returns the shared branch name.
func (r *Repository) Branch() string { return r.opts.Branch }

// Ledger returns the in-memory ledger. Mutations become visible to other
// machines after WriteAndPush.
func (r *Repository) Ledger() *ledger.Ledger { return r.ledger }

func (r *Repository) ledgerPath() string {
	return filepath.Join(r.dir, ledger.LedgerFile)
}

func (r *Repository) checkCorrupt(ctx context.Context) error {
	onDisk, err := os.ReadFile(r.ledgerPath())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	committed, err := r.git.Run(ctx, "cat-file", "blob", "HEAD:"+ledger.LedgerFile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !bytes.Equal(onDisk, []byte(committed)) {
		return fmt.Errorf("%w: %s differs from HEAD", ErrCorrupt, ledger.LedgerFile)
	}
	return nil
}

func (r *Repository) readLedger() error {
	data, err := os.ReadFile(r.ledgerPath())
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	l, err := ledger.Decode(data)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	r.ledger = l
	return nil
}

func (r *Repository) ensureIdentity(ctx context.Context) error {
	for _, kv := range [][2]string{
		{"user.name", r.opts.AuthorName},
		{"user.email", r.opts.AuthorEmail},
	} {
		set, err := r.git.Check(ctx, "config", "--get", kv[0])
		if err != nil {
			return fmt.Errorf("read git identity: %w", err)
		}
		if set {
			continue
		}
		if _, err := r.git.Run(ctx, "config", "--local", kv[0], kv[1]); err != nil {
			return fmt.Errorf("set git identity: %w", err)
		}
	}
	return nil
}

func (r *Repository) remoteRef() string {
	return "refs/remotes/" + remoteName + "/" + r.opts.Branch
}

// Pull fetches the shared branch and fast-forwards to it when possible.
// It reports whether the working tree changed. Local edits under files/
// survive a fast-forward that does not touch them; when it does, Pull
// fails with ErrLocalChanges. On ErrSyncConflict and ErrLocalChanges
// nothing is modified.
func (r *Repository) Pull(ctx context.Context) (bool, error) {
	return r.pull(ctx, false)
}

// PullKeepingLocal is Pull for a machine about to publish its edits under
// files/: where a local edit and the remote touch the same path, the
// local version is kept in the working tree on top of the fast-forward.
func (r *Repository) PullKeepingLocal(ctx context.Context) (bool, error) {
	return r.pull(ctx, true)
}

func (r *Repository) pull(ctx context.Context, keepLocal bool) (bool, error) {
	if _, err := r.git.Run(ctx, "fetch", remoteName, r.opts.Branch); err != nil {
		return false, fmt.Errorf("pull: %w", err)
	}
	local, err := r.git.Output(ctx, "rev-parse", "HEAD")
	if err != nil {
		return false, fmt.Errorf("pull: %w", err)
	}
	remote, err := r.git.Output(ctx, "rev-parse", "FETCH_HEAD")
	if err != nil {
		return false, fmt.Errorf("pull: %w", err)
	}

	analysis, err := r.analyze(ctx, local, remote)
	if err != nil {
		return false, fmt.Errorf("pull: %w", err)
	}
	switch analysis {
	case upToDate, aheadOfRemote:
		r.logger.Debug("already up to date", "head", local)
		return false, nil
	case diverged:
		r.logger.Warn("cannot fast-forward", "local", local, "remote", remote)
		return false, ErrSyncConflict
	}

	overlap, err := r.overlappingChanges(ctx, local, remote)
	if err != nil {
		return false, fmt.Errorf("pull: %w", err)
	}
	var kept []savedFile
	if len(overlap) > 0 {
		if !keepLocal {
			r.logger.Warn("local edits collide with the remote", "paths", overlap)
			return false, fmt.Errorf("%w: %s", ErrLocalChanges, strings.Join(overlap, ", "))
		}
		if kept, err = r.setAside(ctx, overlap); err != nil {
			return false, fmt.Errorf("pull: %w", err)
		}
	}

	r.logger.Info("fast-forwarding", "from", local, "to", remote)
	if _, err := r.git.Run(ctx, "merge", "--ff-only", remote); err != nil {
		return false, fmt.Errorf("pull: fast-forward: %w", err)
	}
	for _, f := range kept {
		if err := f.restore(r.dir); err != nil {
			return true, fmt.Errorf("pull: restore %s: %w", f.path, err)
		}
	}
	if len(kept) > 0 {
		r.logger.Info("kept local versions", "paths", overlap)
	}
	if err := r.readLedger(); err != nil {
		return true, fmt.Errorf("pull: %w", err)
	}
	return true, nil
}

// overlappingChanges lists the uncommitted paths that the commits between
// local and remote also change.
func (r *Repository) overlappingChanges(ctx context.Context, local, remote string) ([]string, error) {
	dirty, _, err := r.status(ctx)
	if err != nil || len(dirty) == 0 {
		return nil, err
	}
	out, err := r.git.Run(ctx, "diff", "--name-only", "-z", local, remote)
	if err != nil {
		return nil, err
	}
	incoming := make(map[string]bool)
	for _, p := range strings.Split(out, "\x00") {
		if p != "" {
			incoming[p] = true
		}
	}
	var overlap []string
	for _, p := range dirty {
		if incoming[p] {
			overlap = append(overlap, p)
		}
	}
	return overlap, nil
}

// savedFile is the working tree state of one path, taken before it is
// reset to HEAD.
type savedFile struct {
	path    string
	exists  bool
	content []byte
	mode    fs.FileMode
}

func (f savedFile) restore(dir string) error {
	full := filepath.Join(dir, filepath.FromSlash(f.path))
	if !f.exists {
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, f.content, f.mode)
}

// setAside records the working tree state of paths and resets them to
// HEAD so that a fast-forward can proceed.
func (r *Repository) setAside(ctx context.Context, paths []string) ([]savedFile, error) {
	saved := make([]savedFile, 0, len(paths))
	for _, p := range paths {
		full := filepath.Join(r.dir, filepath.FromSlash(p))
		f := savedFile{path: p}
		info, err := os.Stat(full)
		switch {
		case err == nil:
			f.exists = true
			f.mode = info.Mode().Perm()
			if f.content, err = os.ReadFile(full); err != nil {
				return nil, err
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
		saved = append(saved, f)
	}
	for _, f := range saved {
		tracked, err := r.inHead(ctx, f.path)
		if err != nil {
			return nil, err
		}
		if tracked {
			if _, err := r.git.Run(ctx, "checkout", "HEAD", "--", f.path); err != nil {
				return nil, err
			}
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, filepath.FromSlash(f.path))); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return saved, nil
}

type mergeAnalysis int

const (
	upToDate mergeAnalysis = iota
	aheadOfRemote
	fastForward
	diverged
)

func (r *Repository) analyze(ctx context.Context, local, remote string) (mergeAnalysis, error) {
	if local == remote {
		return upToDate, nil
	}
	remoteInLocal, err := r.git.Check(ctx, "merge-base", "--is-ancestor", remote, local)
	if err != nil {
		return 0, err
	}
	if remoteInLocal {
		return aheadOfRemote, nil
	}
	localInRemote, err := r.git.Check(ctx, "merge-base", "--is-ancestor", local, remote)
	if err != nil {
		return 0, err
	}
	if localInRemote {
		return fastForward, nil
	}
	return diverged, nil
}

// WriteAndPush serializes the ledger, commits it together with the
// changed paths (relative to the working tree) and pushes the branch.
//
// When neither the ledger nor any changed path differs from HEAD no commit
// is made; an earlier commit whose push failed is pushed again. A failed
// push leaves the commit in place.
func (r *Repository) WriteAndPush(ctx context.Context, message string, changed []string) (bool, error) {
	data, err := ledger.Encode(r.ledger)
	if err != nil {
		return false, fmt.Errorf("write ledger: %w", err)
	}
	current, err := os.ReadFile(r.ledgerPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("write ledger: %w", err)
	}
	if !bytes.Equal(current, data) {
		if err := writeFileAtomic(r.ledgerPath(), data); err != nil {
			return false, fmt.Errorf("write ledger: %w", err)
		}
	}

	args := append([]string{"add", "-A", "--", ledger.LedgerFile}, changed...)
	if _, err := r.git.Run(ctx, args...); err != nil {
		return false, fmt.Errorf("stage: %w", err)
	}
	clean, err := r.git.Check(ctx, "diff", "--cached", "--quiet")
	if err != nil {
		return false, fmt.Errorf("stage: %w", err)
	}

	committed := false
	if !clean {
		if _, err := r.git.Run(ctx, "-c", "commit.gpgsign=false", "commit", "--no-verify", "-m", message); err != nil {
			return false, fmt.Errorf("commit: %w", err)
		}
		committed = true
		r.logger.Info("committed", "message", message)
	}

	ahead, err := r.unpushed(ctx)
	if err != nil {
		return committed, err
	}
	if ahead == 0 {
		r.logger.Debug("nothing to push")
		return committed, nil
	}
	if _, err := r.git.Run(ctx, "push", remoteName, r.opts.Branch); err != nil {
		return committed, fmt.Errorf("push: %w", err)
	}
	r.logger.Info("pushed", "commits", ahead)
	return committed, nil
}

// unpushed counts local commits the remote branch does not have.
func (r *Repository) unpushed(ctx context.Context) (int, error) {
	hasHead, err := r.git.Check(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
	if err != nil || !hasHead {
		return 0, err
	}
	hasRemote, err := r.git.Check(ctx, "rev-parse", "--verify", "--quiet", r.remoteRef())
	if err != nil {
		return 0, fmt.Errorf("count unpushed: %w", err)
	}
	rng := "HEAD"
	if hasRemote {
		rng = r.remoteRef() + "..HEAD"
	}
	out, err := r.git.Output(ctx, "rev-list", "--count", rng)
	if err != nil {
		return 0, fmt.Errorf("count unpushed: %w", err)
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("count unpushed: %w", err)
	}
	return n, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".falconf-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
