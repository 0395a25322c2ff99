package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GideonBear/falconf/internal/engine"
	"github.com/GideonBear/falconf/internal/installation"
	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/logging"
	"github.com/GideonBear/falconf/internal/pieces"
	"github.com/GideonBear/falconf/internal/repo"
	"github.com/GideonBear/falconf/internal/store"
	"github.com/GideonBear/falconf/internal/testutil"
)

type machine struct {
	svc      *Service
	root     string
	runner   *testutil.FakeRunner
	prompter *testutil.ScriptedPrompter
}

func newMachine(t *testing.T, remote, host string, isNew bool, answers ...bool) *machine {
	t.Helper()
	m := &machine{
		root:     filepath.Join(t.TempDir(), "falconf"),
		runner:   &testutil.FakeRunner{},
		prompter: testutil.NewScriptedPrompter(answers...),
	}
	svc, err := Init(context.Background(), InitRequest{
		Root:   m.root,
		Remote: remote,
		New:    isNew,
	}, Options{
		Logger:   logging.Discard(),
		Runner:   m.runner,
		Prompter: m.prompter,
		Hostname: host,
	}, installation.Options{
		Now: testutil.NewStepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second).Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	m.svc = svc
	return m
}

func newFleet(t *testing.T) (remote string, a, b *machine) {
	t.Helper()
	remote = testutil.NewRemote(t)
	a = newMachine(t, remote, "host-a", true)
	b = newMachine(t, remote, "host-b", false)
	return remote, a, b
}

func addCommand(t *testing.T, m *machine, run, undo string, doneHere bool) *ledger.Record {
	t.Helper()
	rec, err := m.svc.Add(context.Background(), AddRequest{
		Spec:     pieces.Spec{Kind: ledger.KindCommand, Value: []string{run}, Undo: undo},
		DoneHere: doneHere,
	})
	require.NoError(t, err)
	return rec
}

func get(t *testing.T, m *machine, id ledger.PieceID) *ledger.Record {
	t.Helper()
	r, err := m.svc.Installation().Ledger().Get(id)
	require.NoError(t, err)
	return r
}

func TestAddExecutesAndPushes(t *testing.T) {
	remote, a, _ := newFleet(t)

	rec := addCommand(t, a, "echo hi", "", false)
	assert.Equal(t, []string{"bash -c echo hi"}, a.runner.CommandLines())
	assert.True(t, rec.DoneOnMachine(a.svc.Installation().Machine()))
	assert.Equal(t, "3", testutil.CommitCount(t, remote, "main"))
}

func TestAddDoneHereDoesNotExecute(t *testing.T) {
	_, a, _ := newFleet(t)

	rec := addCommand(t, a, "echo hi", "", true)
	assert.Empty(t, a.runner.Calls())
	assert.True(t, rec.DoneOnMachine(a.svc.Installation().Machine()))
}

func TestAddFailureAddsNothing(t *testing.T) {
	remote, a, _ := newFleet(t)
	a.runner.FailWhen = testutil.FailOnArg("false")

	_, err := a.svc.Add(context.Background(), AddRequest{
		Spec: pieces.Spec{Kind: ledger.KindCommand, Value: []string{"false"}},
	})
	require.ErrorIs(t, err, engine.ErrExecutionFailure)
	assert.Zero(t, a.svc.Installation().Ledger().Len())
	assert.Equal(t, "2", testutil.CommitCount(t, remote, "main"))
}

func TestSyncIsIdempotent(t *testing.T) {
	remote, a, b := newFleet(t)
	addCommand(t, a, "echo hi", "", false)

	report, err := b.svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Executed, 1)
	assert.Equal(t, []string{"bash -c echo hi"}, b.runner.CommandLines())
	commits := testutil.CommitCount(t, remote, "main")

	report, err = b.svc.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.Equal(t, commits, testutil.CommitCount(t, remote, "main"))
	assert.Len(t, b.runner.Calls(), 1)
}

func TestSyncPartialFailurePushesProgress(t *testing.T) {
	_, a, b := newFleet(t)
	first := addCommand(t, a, "echo one", "", true)
	second := addCommand(t, a, "exit 3", "", true)
	third := addCommand(t, a, "echo three", "", true)
	b.runner.FailWhen = testutil.FailOnArg("exit 3")

	report, err := b.svc.Sync(context.Background())
	require.ErrorIs(t, err, engine.ErrExecutionFailure)
	assert.Equal(t, []ledger.PieceID{first.ID()}, report.Executed)

	// a sees exactly what b managed to do.
	_, err = a.svc.List(context.Background())
	require.NoError(t, err)
	bm := b.svc.Installation().Machine()
	assert.True(t, get(t, a, first.ID()).DoneOnMachine(bm))
	assert.False(t, get(t, a, second.ID()).DoneOnMachine(bm))
	assert.False(t, get(t, a, third.ID()).DoneOnMachine(bm))
}

func TestSyncAddsMissingMachine(t *testing.T) {
	_, a, _ := newFleet(t)
	require.NoError(t, os.Remove(filepath.Join(a.root, installation.MachineFile)))
	require.NoError(t, os.WriteFile(filepath.Join(a.root, installation.MachineFile), []byte(ledger.Machine{0x42}.String()+"\n"), 0o644))

	svc, err := Open(context.Background(), a.root, Options{Logger: logging.Discard(), Runner: a.runner, Hostname: "renamed"}, installation.Options{})
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Sync(context.Background())
	require.NoError(t, err)
	data, ok := svc.Installation().Ledger().Machine(ledger.Machine{0x42})
	require.True(t, ok)
	assert.Equal(t, "renamed", data.Hostname)
}

func TestUndoRemoveLifecycle(t *testing.T) {
	_, a, b := newFleet(t)
	ctx := context.Background()
	rec := addCommand(t, a, "touch /tmp/x", "rm /tmp/x", false)

	_, err := b.svc.Sync(ctx)
	require.NoError(t, err)

	report, err := a.svc.Undo(ctx, UndoRequest{Refs: []ledger.PieceRef{ledger.RefLast()}})
	require.NoError(t, err)
	assert.Equal(t, []ledger.PieceID{rec.ID()}, report.Undone)
	assert.Contains(t, a.runner.CommandLines(), "bash -c rm /tmp/x")

	_, err = a.svc.Remove(ctx, RemoveRequest{Refs: []ledger.PieceRef{ledger.RefID(rec.ID())}})
	require.ErrorIs(t, err, ErrInUse)

	report, err = b.svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.PieceID{rec.ID()}, report.Undone)

	items, err := a.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Unused)

	removed, err := a.svc.Remove(ctx, RemoveRequest{Refs: []ledger.PieceRef{ledger.RefLast()}})
	require.NoError(t, err)
	assert.Equal(t, []ledger.PieceID{rec.ID()}, removed)
	assert.Zero(t, a.svc.Installation().Ledger().Len())
}

func TestUndoRejections(t *testing.T) {
	_, a, _ := newFleet(t)
	ctx := context.Background()
	withUndo := addCommand(t, a, "echo a", "echo b", true)
	withoutUndo := addCommand(t, a, "echo c", "", true)

	_, err := a.svc.Undo(ctx, UndoRequest{Refs: []ledger.PieceRef{ledger.RefID(withUndo.ID()), ledger.RefID(withoutUndo.ID())}})
	require.ErrorIs(t, err, pieces.ErrUndefinedUndo)
	assert.False(t, get(t, a, withUndo.ID()).MarkedForUndo(), "nothing is marked when any record is rejected")

	_, err = a.svc.Undo(ctx, UndoRequest{Refs: []ledger.PieceRef{ledger.RefID(withUndo.ID())}, DoneHere: true})
	require.NoError(t, err)
	assert.Empty(t, a.runner.Calls())

	_, err = a.svc.Undo(ctx, UndoRequest{Refs: []ledger.PieceRef{ledger.RefID(withUndo.ID())}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already marked")

	_, err = a.svc.Undo(ctx, UndoRequest{Refs: []ledger.PieceRef{ledger.RefID(0x12345678)}})
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRemoveForce(t *testing.T) {
	_, a, _ := newFleet(t)
	rec := addCommand(t, a, "echo a", "", true)

	_, err := a.svc.Remove(context.Background(), RemoveRequest{Refs: []ledger.PieceRef{ledger.RefID(rec.ID())}, Force: true})
	require.NoError(t, err)
	_, err = a.svc.Installation().Ledger().Get(rec.ID())
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestEdit(t *testing.T) {
	_, a, b := newFleet(t)
	ctx := context.Background()
	rec := addCommand(t, a, "echo a", "", true)

	comment := "greets"
	undo := "echo bye"
	require.NoError(t, a.svc.Edit(ctx, EditRequest{Ref: ledger.RefLast(), Comment: &comment, Undo: &undo}))

	_, err := b.svc.List(ctx)
	require.NoError(t, err)
	got := get(t, b, rec.ID())
	assert.Equal(t, "greets", got.Comment())
	assert.Equal(t, "echo bye", got.Piece().Command.Undo)

	require.NoError(t, a.svc.Edit(ctx, EditRequest{Ref: ledger.RefLast(), RemoveComment: true, RemoveUndo: true}))
	got = get(t, a, rec.ID())
	assert.Empty(t, got.Comment())
	assert.Empty(t, got.Piece().Command.Undo)

	err = a.svc.Edit(ctx, EditRequest{Ref: ledger.RefLast(), Comment: &comment, RemoveComment: true})
	require.Error(t, err)
	err = a.svc.Edit(ctx, EditRequest{Ref: ledger.RefLast()})
	require.Error(t, err)
}

func TestEditPartialFailurePushesAppliedOps(t *testing.T) {
	_, a, b := newFleet(t)
	ctx := context.Background()

	rec, err := a.svc.Add(ctx, AddRequest{Spec: pieces.Spec{Value: []string{"apt install cowsay"}}, DoneHere: true})
	require.NoError(t, err)
	require.Equal(t, ledger.KindApt, rec.Kind())

	comment := "moo"
	undo := "apt remove cowsay"
	err = a.svc.Edit(ctx, EditRequest{Ref: ledger.RefID(rec.ID()), Comment: &comment, Undo: &undo})
	require.ErrorIs(t, err, ledger.ErrInvalidPiece)

	_, err = b.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "moo", get(t, b, rec.ID()).Comment())
}

func TestFilePieceAndPush(t *testing.T) {
	remote, a, _ := newFleet(t)
	ctx := context.Background()

	location := filepath.Join(t.TempDir(), "home", ".bashrc")
	require.NoError(t, os.MkdirAll(filepath.Dir(location), 0o755))
	require.NoError(t, os.WriteFile(location, []byte("alias ll='ls -l'\n"), 0o644))

	rec, err := a.svc.Add(ctx, AddRequest{Spec: pieces.Spec{Kind: ledger.KindFile, Value: []string{location}}})
	require.NoError(t, err)

	tracked := pieces.TrackedPath(a.svc.Installation().Repository().FilesDir(), rec.Piece().File)
	dest, err := os.Readlink(location)
	require.NoError(t, err)
	assert.Equal(t, tracked, dest)
	assert.Equal(t, "alias ll='ls -l'\n", testutil.Git(t, remote, "show", "main:"+filepath.ToSlash(filepath.Join(repo.FilesDir, rec.Piece().File.RelativeLocation())))+"\n")

	// Edits through the symlink land in files/.
	require.NoError(t, os.WriteFile(location, []byte("alias la='ls -a'\n"), 0o644))
	commits := testutil.CommitCount(t, remote, "main")

	_, err = a.svc.Push(ctx)
	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, commits, testutil.CommitCount(t, remote, "main"))
	require.Len(t, a.prompter.Questions, 1)
	assert.Contains(t, a.prompter.Questions[0], "+alias la='ls -a'")

	a.svc.prompter = testutil.NewScriptedPrompter(true)
	pushed, err := a.svc.Push(ctx)
	require.NoError(t, err)
	assert.True(t, pushed)
	assert.NotEqual(t, commits, testutil.CommitCount(t, remote, "main"))

	// Nothing left to push.
	pushed, err = a.svc.Push(ctx)
	require.NoError(t, err)
	assert.False(t, pushed)
}

func TestPushKeepsLocalEditOverRemoteEdit(t *testing.T) {
	remote, a, b := newFleet(t)
	ctx := context.Background()

	location := filepath.Join(t.TempDir(), "home", ".bashrc")
	require.NoError(t, os.MkdirAll(filepath.Dir(location), 0o755))
	require.NoError(t, os.WriteFile(location, []byte("one\n"), 0o644))
	rec, err := a.svc.Add(ctx, AddRequest{Spec: pieces.Spec{Kind: ledger.KindFile, Value: []string{location}}})
	require.NoError(t, err)
	rel := filepath.ToSlash(filepath.Join(repo.FilesDir, rec.Piece().File.RelativeLocation()))

	pushed, err := b.svc.Push(ctx)
	require.NoError(t, err)
	assert.False(t, pushed)
	onB := pieces.TrackedPath(b.svc.Installation().Repository().FilesDir(), rec.Piece().File)

	require.NoError(t, os.WriteFile(location, []byte("from a\n"), 0o644))
	a.svc.prompter = testutil.NewScriptedPrompter(true)
	pushed, err = a.svc.Push(ctx)
	require.NoError(t, err)
	require.True(t, pushed)

	require.NoError(t, os.WriteFile(onB, []byte("from b\n"), 0o644))
	_, err = b.svc.Sync(ctx)
	require.ErrorIs(t, err, repo.ErrLocalChanges)
	assert.Empty(t, b.runner.Calls())

	confirm := testutil.NewScriptedPrompter(true)
	b.svc.prompter = confirm
	pushed, err = b.svc.Push(ctx)
	require.NoError(t, err)
	assert.True(t, pushed)
	require.Len(t, confirm.Questions, 1)
	assert.Contains(t, confirm.Questions[0], "-from a")
	assert.Contains(t, confirm.Questions[0], "+from b")
	assert.Equal(t, "from b", testutil.Git(t, remote, "show", "main:"+rel))
}

func TestTestRunMarksWithoutExecuting(t *testing.T) {
	remote, a, _ := newFleet(t)
	addCommand(t, a, "echo hi", "", true)

	c := newMachine(t, remote, "host-c", false)
	c.svc.testRun = true

	report, err := c.svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Executed, 1)
	assert.Empty(t, c.runner.Calls())
}

func TestHistory(t *testing.T) {
	_, a, b := newFleet(t)
	ctx := context.Background()
	ok := addCommand(t, a, "echo ok", "", true)
	bad := addCommand(t, a, "exit 1", "", true)
	b.runner.FailWhen = testutil.FailOnArg("exit 1")

	_, err := b.svc.Sync(ctx)
	require.Error(t, err)

	entries, err := b.svc.History(ctx, HistoryRequest{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, bad.ID().String(), entries[0].PieceID)
	assert.Equal(t, store.OutcomeFailure, entries[0].Outcome)
	assert.Equal(t, ok.ID().String(), entries[1].PieceID)
	assert.Equal(t, "sync", entries[1].Operation)

	entries, err = b.svc.History(ctx, HistoryRequest{Piece: ok.ID().String()})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = b.svc.History(ctx, HistoryRequest{Piece: "-"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, bad.ID().String(), entries[0].PieceID)

	runs, err := b.svc.Installation().Journal().ReadRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.OutcomeFailure, runs[0].Outcome)
}

func TestStatus(t *testing.T) {
	_, a, b := newFleet(t)
	ctx := context.Background()
	rec := addCommand(t, a, "echo hi", "", true)
	_, err := b.svc.List(ctx)
	require.NoError(t, err)

	st, err := Status(ctx, b.root, installation.Options{Logger: logging.Discard()})
	require.NoError(t, err)
	assert.Equal(t, repo.Clean, st.Repo.State)
	assert.Equal(t, "host-b", st.Hostname)
	assert.Equal(t, []ledger.PieceID{rec.ID()}, st.ToExecute)

	path := filepath.Join(b.root, installation.RepositoryDir, ledger.LedgerFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	st, err = Status(ctx, b.root, installation.Options{Logger: logging.Discard()})
	require.NoError(t, err)
	assert.Equal(t, repo.Corrupt, st.Repo.State)
	assert.Empty(t, st.ToExecute)
}
