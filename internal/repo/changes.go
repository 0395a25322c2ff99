package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ChangedFiles lists uncommitted changes in the working tree, relative to
// it. Every change must be under files/; anything else fails with
// ErrOutsideFiles.
func (r *Repository) ChangedFiles(ctx context.Context) ([]string, error) {
	changed, outside, err := r.status(ctx)
	if err != nil {
		return nil, err
	}
	if len(outside) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrOutsideFiles, strings.Join(outside, ", "))
	}
	return changed, nil
}

// status splits the uncommitted paths into those under files/ and the rest.
func (r *Repository) status(ctx context.Context) (changed, outside []string, err error) {
	out, err := r.git.Run(ctx, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, nil, fmt.Errorf("changed files: %w", err)
	}

	entries := strings.Split(out, "\x00")
	for i := 0; i < len(entries); i++ {
		e := entries[i]
		if len(e) < 4 {
			continue
		}
		status, path := e[:2], e[3:]
		paths := []string{path}
		if status[0] == 'R' || status[0] == 'C' {
			// The source path follows as its own entry.
			i++
			if i < len(entries) {
				paths = append(paths, entries[i])
			}
		}
		for _, p := range paths {
			if strings.HasPrefix(p, FilesDir+"/") {
				changed = append(changed, p)
			} else {
				outside = append(outside, p)
			}
		}
	}
	sort.Strings(changed)
	return changed, outside, nil
}

// Diff renders a unified diff of paths between HEAD and the working tree.
func (r *Repository) Diff(ctx context.Context, paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		before, err := r.committed(ctx, p)
		if err != nil {
			return "", fmt.Errorf("diff %s: %w", p, err)
		}
		after, err := os.ReadFile(filepath.Join(r.dir, filepath.FromSlash(p)))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("diff %s: %w", p, err)
		}
		d, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(before),
			B:        difflib.SplitLines(string(after)),
			FromFile: "a/" + p,
			ToFile:   "b/" + p,
			Context:  3,
		})
		if err != nil {
			return "", fmt.Errorf("diff %s: %w", p, err)
		}
		b.WriteString(d)
	}
	return b.String(), nil
}

// committed returns the content of path at HEAD, or "" when HEAD does not
// have it.
func (r *Repository) committed(ctx context.Context, path string) (string, error) {
	exists, err := r.inHead(ctx, path)
	if err != nil || !exists {
		return "", err
	}
	return r.git.Run(ctx, "cat-file", "blob", "HEAD:"+path)
}

// inHead reports whether HEAD has path.
func (r *Repository) inHead(ctx context.Context, path string) (bool, error) {
	exists, err := r.git.Check(ctx, "cat-file", "-e", "HEAD:"+path)
	if err != nil {
		// cat-file -e exits 128 for a missing path on some git versions.
		if ExitCode(err) == 128 {
			return false, nil
		}
		return false, err
	}
	return exists, nil
}
