package pieces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/GideonBear/falconf/internal/ledger"
)

// FileKind links tracked files from files/ into their location.
type FileKind struct {
	prompter Prompter
	logger   *slog.Logger
}

// NewFileKind creates the file capability.
func NewFileKind(prompter Prompter, logger *slog.Logger) *FileKind {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileKind{prompter: prompter, logger: logger}
}

// Kind implements Capability.
func (k *FileKind) Kind() ledger.Kind { return ledger.KindFile }

// TrackedPath is where the content of f lives inside filesDir.
func TrackedPath(filesDir string, f *ledger.File) string {
	return filepath.Join(filesDir, filepath.FromSlash(f.RelativeLocation()))
}

// Execute replaces the location with a symlink to the tracked content.
func (k *FileKind) Execute(ctx context.Context, ectx ExecContext, piece ledger.Piece) error {
	f := piece.File
	if f == nil {
		return fmt.Errorf("file: unexpected %s piece", piece.Kind)
	}
	target := TrackedPath(ectx.FilesDir, f)
	tracked, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("file: tracked content for %s: %w", f.Location, err)
	}

	info, err := os.Lstat(f.Location)
	switch {
	case err == nil && info.Mode()&fs.ModeSymlink != 0:
		dest, err := os.Readlink(f.Location)
		if err != nil {
			return fmt.Errorf("file: %w", err)
		}
		if dest == target {
			k.logger.Info("file already linked", "location", f.Location)
			return nil
		}
		return fmt.Errorf("file: %s already exists and is a symlink to %s", f.Location, dest)
	case err == nil && info.IsDir():
		return fmt.Errorf("file: %s is a directory", f.Location)
	case err == nil:
		if err := k.checkExisting(f, target, tracked); err != nil {
			return err
		}
		if err := os.Remove(f.Location); err != nil {
			return fmt.Errorf("file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if f.ExpectedPreviousContent != nil {
			return fmt.Errorf("file: %s was expected to exist with content %q, but it doesn't exist", f.Location, *f.ExpectedPreviousContent)
		}
	default:
		return fmt.Errorf("file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Location), 0o755); err != nil {
		return fmt.Errorf("file: %w", err)
	}
	if err := os.Symlink(target, f.Location); err != nil {
		return fmt.Errorf("file: %w", err)
	}
	k.logger.Info("linked file", "location", f.Location, "target", target)
	return nil
}

func (k *FileKind) checkExisting(f *ledger.File, target string, tracked []byte) error {
	current, err := os.ReadFile(f.Location)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	if f.ExpectedPreviousContent != nil {
		if string(current) != *f.ExpectedPreviousContent {
			return fmt.Errorf("file: %s has different content than expected; expected %q, got %q", f.Location, *f.ExpectedPreviousContent, string(current))
		}
		k.logger.Info("file exists with expected content; overwriting", "location", f.Location)
		return nil
	}
	if bytes.Equal(current, tracked) {
		k.logger.Info("file exists and is identical; overwriting", "location", f.Location)
		return nil
	}

	diff, err := UnifiedDiff(f.Location, target, string(current), string(tracked))
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	question := fmt.Sprintf("File %s already exists and is different. Diff:\n%s\nConsider adding an expected content string to the piece to prevent this in the future.\nDo you want to overwrite the file?", f.Location, diff)
	ok, err := k.prompter.Confirm(question)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	if !ok {
		return fmt.Errorf("file: overwrite %s: %w", f.Location, ErrDeclined)
	}
	k.logger.Info("overwriting file according to user input", "location", f.Location)
	return nil
}

// Undo removes the symlink. A missing location counts as already undone.
func (k *FileKind) Undo(ctx context.Context, ectx ExecContext, piece ledger.Piece) error {
	f := piece.File
	if f == nil {
		return fmt.Errorf("file: unexpected %s piece", piece.Kind)
	}
	target := TrackedPath(ectx.FilesDir, f)

	info, err := os.Lstat(f.Location)
	if errors.Is(err, fs.ErrNotExist) {
		k.logger.Info("file already absent", "location", f.Location)
		return nil
	}
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return fmt.Errorf("file: refusing to remove %s: not a symlink into files/", f.Location)
	}
	dest, err := os.Readlink(f.Location)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	if dest != target {
		return fmt.Errorf("file: refusing to remove %s: links to %s, not %s", f.Location, dest, target)
	}
	if err := os.Remove(f.Location); err != nil {
		return fmt.Errorf("file: failed to remove file as part of undo: %w", err)
	}
	return nil
}

// Adopt copies the current content of the location into files/ so that it
// can be committed alongside a new file piece. It returns the tracked path
// and whether anything was copied. Existing tracked content is left alone.
func Adopt(filesDir string, f *ledger.File) (string, bool, error) {
	target := TrackedPath(filesDir, f)
	if _, err := os.Stat(target); err == nil {
		return target, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("adopt %s: %w", f.Location, err)
	}

	info, err := os.Lstat(f.Location)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("adopt %s: nothing to track, the file does not exist", f.Location)
	}
	if err != nil {
		return "", false, fmt.Errorf("adopt %s: %w", f.Location, err)
	}
	if !info.Mode().IsRegular() {
		return "", false, fmt.Errorf("adopt %s: not a regular file", f.Location)
	}
	content, err := os.ReadFile(f.Location)
	if err != nil {
		return "", false, fmt.Errorf("adopt %s: %w", f.Location, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", false, fmt.Errorf("adopt %s: %w", f.Location, err)
	}
	if err := os.WriteFile(target, content, info.Mode().Perm()); err != nil {
		return "", false, fmt.Errorf("adopt %s: %w", f.Location, err)
	}
	return target, true, nil
}

// UnifiedDiff renders a unified diff from a to b.
func UnifiedDiff(fromName, toName, a, b string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
}
