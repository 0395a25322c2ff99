package pieces

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/testutil"
)

type fileFixture struct {
	ectx     ExecContext
	location string
	piece    ledger.Piece
	prompter *testutil.ScriptedPrompter
	kind     *FileKind
}

func newFileFixture(t *testing.T, expected *string, answers ...bool) *fileFixture {
	t.Helper()
	root := t.TempDir()
	location := filepath.Join(root, "home", "user", ".bashrc")
	p, err := ledger.NewFile(location, expected)
	require.NoError(t, err)
	prompter := testutil.NewScriptedPrompter(answers...)
	return &fileFixture{
		ectx:     ExecContext{FilesDir: filepath.Join(root, "repo", "files")},
		location: location,
		piece:    p,
		prompter: prompter,
		kind:     NewFileKind(prompter, nil),
	}
}

func (f *fileFixture) writeTracked(t *testing.T, content string) string {
	t.Helper()
	target := TrackedPath(f.ectx.FilesDir, f.piece.File)
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte(content), 0o644))
	return target
}

func (f *fileFixture) writeLocation(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(f.location), 0o755))
	require.NoError(t, os.WriteFile(f.location, []byte(content), 0o644))
}

func requireLink(t *testing.T, location, target string) {
	t.Helper()
	dest, err := os.Readlink(location)
	require.NoError(t, err)
	assert.Equal(t, target, dest)
}

func TestTrackedPathMirrorsLocation(t *testing.T) {
	p, err := ledger.NewFile("/etc/ssh/sshd_config", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/repo/files", "etc", "ssh", "sshd_config"), TrackedPath("/repo/files", p.File))
}

func TestFileExecuteCreatesLink(t *testing.T) {
	f := newFileFixture(t, nil)
	target := f.writeTracked(t, "alias ll='ls -l'\n")

	require.NoError(t, f.kind.Execute(context.Background(), f.ectx, f.piece))
	requireLink(t, f.location, target)

	content, err := os.ReadFile(f.location)
	require.NoError(t, err)
	assert.Equal(t, "alias ll='ls -l'\n", string(content))

	// Running again is a no-op.
	require.NoError(t, f.kind.Execute(context.Background(), f.ectx, f.piece))
	assert.Empty(t, f.prompter.Questions)
}

func TestFileExecuteMissingTrackedContent(t *testing.T) {
	f := newFileFixture(t, nil)
	err := f.kind.Execute(context.Background(), f.ectx, f.piece)
	require.Error(t, err)
	_, statErr := os.Lstat(f.location)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileExecuteIdenticalExistingFile(t *testing.T) {
	f := newFileFixture(t, nil)
	target := f.writeTracked(t, "same\n")
	f.writeLocation(t, "same\n")

	require.NoError(t, f.kind.Execute(context.Background(), f.ectx, f.piece))
	requireLink(t, f.location, target)
	assert.Empty(t, f.prompter.Questions)
}

func TestFileExecuteDifferentFileAsksAndAccepts(t *testing.T) {
	f := newFileFixture(t, nil, true)
	target := f.writeTracked(t, "new\n")
	f.writeLocation(t, "old\n")

	require.NoError(t, f.kind.Execute(context.Background(), f.ectx, f.piece))
	requireLink(t, f.location, target)
	require.Len(t, f.prompter.Questions, 1)
	assert.Contains(t, f.prompter.Questions[0], "-old")
	assert.Contains(t, f.prompter.Questions[0], "+new")
}

func TestFileExecuteDifferentFileDeclined(t *testing.T) {
	f := newFileFixture(t, nil, false)
	f.writeTracked(t, "new\n")
	f.writeLocation(t, "old\n")

	err := f.kind.Execute(context.Background(), f.ectx, f.piece)
	require.ErrorIs(t, err, ErrDeclined)

	content, err := os.ReadFile(f.location)
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(content))
}

func TestFileExecuteExpectedContent(t *testing.T) {
	expected := "old\n"

	t.Run("matches", func(t *testing.T) {
		f := newFileFixture(t, &expected)
		target := f.writeTracked(t, "new\n")
		f.writeLocation(t, "old\n")
		require.NoError(t, f.kind.Execute(context.Background(), f.ectx, f.piece))
		requireLink(t, f.location, target)
		assert.Empty(t, f.prompter.Questions)
	})

	t.Run("differs", func(t *testing.T) {
		f := newFileFixture(t, &expected)
		f.writeTracked(t, "new\n")
		f.writeLocation(t, "something else\n")
		err := f.kind.Execute(context.Background(), f.ectx, f.piece)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "different content than expected")
	})

	t.Run("missing", func(t *testing.T) {
		f := newFileFixture(t, &expected)
		f.writeTracked(t, "new\n")
		err := f.kind.Execute(context.Background(), f.ectx, f.piece)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected to exist")
	})
}

func TestFileExecuteForeignSymlink(t *testing.T) {
	f := newFileFixture(t, nil)
	f.writeTracked(t, "x")
	require.NoError(t, os.MkdirAll(filepath.Dir(f.location), 0o755))
	require.NoError(t, os.Symlink("/elsewhere", f.location))

	err := f.kind.Execute(context.Background(), f.ectx, f.piece)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists and is a symlink")
}

func TestFileUndo(t *testing.T) {
	f := newFileFixture(t, nil)
	f.writeTracked(t, "x")
	require.NoError(t, f.kind.Execute(context.Background(), f.ectx, f.piece))

	require.NoError(t, f.kind.Undo(context.Background(), f.ectx, f.piece))
	_, err := os.Lstat(f.location)
	assert.True(t, os.IsNotExist(err))

	// Undoing an absent file is fine.
	require.NoError(t, f.kind.Undo(context.Background(), f.ectx, f.piece))
}

func TestFileUndoRefusesRegularFile(t *testing.T) {
	f := newFileFixture(t, nil)
	f.writeLocation(t, "mine")

	err := f.kind.Undo(context.Background(), f.ectx, f.piece)
	require.Error(t, err)
	_, statErr := os.Stat(f.location)
	assert.NoError(t, statErr)
}

func TestAdopt(t *testing.T) {
	f := newFileFixture(t, nil)
	f.writeLocation(t, "content\n")

	target, adopted, err := Adopt(f.ectx.FilesDir, f.piece.File)
	require.NoError(t, err)
	assert.True(t, adopted)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "content\n", string(data))

	// Second adopt leaves the tracked copy alone.
	f.writeLocation(t, "changed\n")
	_, adopted, err = Adopt(f.ectx.FilesDir, f.piece.File)
	require.NoError(t, err)
	assert.False(t, adopted)
	data, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "content\n", string(data))
}

func TestAdoptMissingFile(t *testing.T) {
	f := newFileFixture(t, nil)
	_, _, err := Adopt(f.ectx.FilesDir, f.piece.File)
	require.Error(t, err)
}

func TestUnifiedDiff(t *testing.T) {
	diff, err := UnifiedDiff("a", "b", "one\ntwo\n", "one\nthree\n")
	require.NoError(t, err)
	assert.Contains(t, diff, "--- a")
	assert.Contains(t, diff, "+++ b")
	assert.Contains(t, diff, "-two")
	assert.Contains(t, diff, "+three")
}
