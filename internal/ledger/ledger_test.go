package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs(ids ...PieceID) IDSource {
	i := 0
	return func() PieceID {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestLedgerAppendAndResolve(t *testing.T) {
	l := New()

	_, err := l.Resolve(RefLast())
	require.ErrorIs(t, err, ErrNotFound)

	a := newCommandRecord(t, 0xa)
	b := newCommandRecord(t, 0xb)
	require.NoError(t, l.Append(a))
	require.NoError(t, l.Append(b))
	require.ErrorIs(t, l.Append(newCommandRecord(t, 0xa)), ErrDuplicateID)

	got, err := l.Resolve(RefLast())
	require.NoError(t, err)
	assert.Same(t, b, got)

	got, err = l.Resolve(RefID(0xa))
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = l.Resolve(RefID(0xc))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerResolveAll(t *testing.T) {
	l := New()
	require.NoError(t, l.Append(newCommandRecord(t, 1)))
	require.NoError(t, l.Append(newCommandRecord(t, 2)))

	recs, err := l.ResolveAll([]PieceRef{RefID(1), RefLast(), RefID(2)})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, PieceID(1), recs[0].ID())
	assert.Equal(t, PieceID(2), recs[1].ID())

	_, err = l.ResolveAll([]PieceRef{RefID(1), RefID(3)})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerRemoveKeepsOrder(t *testing.T) {
	l := New()
	for _, id := range []PieceID{1, 2, 3} {
		require.NoError(t, l.Append(newCommandRecord(t, id)))
	}
	require.NoError(t, l.Remove(2))
	require.ErrorIs(t, l.Remove(2), ErrNotFound)

	recs := l.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, PieceID(1), recs[0].ID())
	assert.Equal(t, PieceID(3), recs[1].ID())
}

func TestLedgerNewIDSkipsCollisions(t *testing.T) {
	l := New()
	require.NoError(t, l.Append(newCommandRecord(t, 5)))
	l.SetIDSource(sequentialIDs(5, 5, 6))
	assert.Equal(t, PieceID(6), l.NewID())
}

func TestLedgerAddMachineDoesNotOverwrite(t *testing.T) {
	l := New()
	assert.True(t, l.AddMachine(m1, NewMachineData("alpha")))
	assert.False(t, l.AddMachine(m1, NewMachineData("beta")))

	data, ok := l.Machine(m1)
	require.True(t, ok)
	assert.Equal(t, "alpha", data.Hostname)

	l.AddMachine(m2, NewMachineData("beta"))
	assert.Equal(t, []Machine{m1, m2}, l.Machines())
}

func TestLedgerPending(t *testing.T) {
	l := New()
	run := newCommandRecord(t, 1)
	done := newCommandRecord(t, 2)
	done.MarkExecuted(m1)
	undo := newCommandRecord(t, 3)
	undo.MarkExecuted(m1)
	require.NoError(t, undo.MarkForUndo())
	for _, r := range []*Record{run, done, undo} {
		require.NoError(t, l.Append(r))
	}

	execute, toUndo := l.Pending(m1)
	require.Len(t, execute, 1)
	require.Len(t, toUndo, 1)
	assert.Equal(t, PieceID(1), execute[0].ID())
	assert.Equal(t, PieceID(3), toUndo[0].ID())

	execute, toUndo = l.Pending(m2)
	assert.Len(t, execute, 2)
	assert.Empty(t, toUndo)
}

func TestNewPieceValidation(t *testing.T) {
	_, err := NewApt("")
	assert.ErrorIs(t, err, ErrInvalidPiece)
	_, err = NewApt("two words")
	assert.ErrorIs(t, err, ErrInvalidPiece)
	_, err = NewCommand("  ", "")
	assert.ErrorIs(t, err, ErrInvalidPiece)
	_, err = NewFile("relative/path", nil)
	assert.ErrorIs(t, err, ErrInvalidPiece)
	_, err = NewFile("/", nil)
	assert.ErrorIs(t, err, ErrInvalidPiece)
	_, err = NewManual("")
	assert.ErrorIs(t, err, ErrInvalidPiece)

	f, err := NewFile("/etc//hosts", nil)
	require.NoError(t, err)
	assert.Equal(t, "/etc/hosts", f.File.Location)
	assert.Equal(t, "etc/hosts", f.File.RelativeLocation())

	_, err = ParseKind("snap")
	assert.ErrorIs(t, err, ErrInvalidPiece)
}

func TestPieceString(t *testing.T) {
	apt, _ := NewApt("cowsay")
	cmd, _ := NewCommand("echo 'some text'", "")
	file, _ := NewFile("/tmp/test1.txt", nil)
	manual, _ := NewManual("some message")

	assert.Equal(t, "apt install cowsay", apt.String())
	assert.Equal(t, "echo 'some text'", cmd.String())
	assert.Equal(t, "Tracking file at: /tmp/test1.txt", file.String())
	assert.Equal(t, "Manual action: some message", manual.String())
}
