package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/pieces"
	"github.com/GideonBear/falconf/internal/testutil"
)

func TestWorklists(t *testing.T) {
	fresh := commandRecord(t, 1, "a", "")
	done := commandRecord(t, 2, "b", "")
	done.MarkExecuted(machineA)
	owed := commandRecord(t, 3, "c", "d")
	owed.MarkExecuted(machineA)
	require.NoError(t, owed.MarkForUndo())
	skipped := commandRecord(t, 4, "e", "f")
	require.NoError(t, skipped.MarkForUndo())

	execute, undo := Worklists([]*ledger.Record{fresh, done, owed, skipped}, machineA)
	assert.Equal(t, []*ledger.Record{fresh}, execute)
	assert.Equal(t, []*ledger.Record{owed}, undo)
}

func TestPartition(t *testing.T) {
	runner := &testutil.FakeRunner{}
	reg := pieces.NewDefaultRegistry(runner, testutil.NewScriptedPrompter(), pieces.AptOptions{}, nil)

	manual, err := ledger.NewManual("reboot")
	require.NoError(t, err)
	m, err := ledger.NewRecord(5, manual, "")
	require.NoError(t, err)

	records := []*ledger.Record{
		commandRecord(t, 1, "a", ""),
		aptRecord(t, 2, "x"),
		m,
		aptRecord(t, 3, "y"),
	}
	groups, rest, err := Partition(reg, records)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, ledger.KindApt, groups[0].Kind)
	assert.True(t, groups[0].Bulk)
	assert.Equal(t, []ledger.PieceID{2, 3}, groups[0].IDs())
	require.Len(t, rest, 2)
	assert.Equal(t, ledger.PieceID(1), rest[0].ID())
	assert.Equal(t, ledger.PieceID(5), rest[1].ID())
}

func TestScheduleEmpty(t *testing.T) {
	reg := pieces.NewRegistry()
	steps, err := Schedule(reg, nil, machineA)
	require.NoError(t, err)
	assert.Empty(t, steps)
}
