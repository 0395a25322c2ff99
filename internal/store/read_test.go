package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxSeq_Empty(t *testing.T) {
	s := createTestStore(t)
	seq, err := s.MaxSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestReadRuns_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, op := range []string{"sync", "add", "undo"} {
		_, err := s.BeginRun(ctx, op, "machine-a", false)
		require.NoError(t, err)
	}

	runs, err := s.ReadRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "undo", runs[0].Operation)
	assert.Equal(t, "sync", runs[2].Operation)

	runs, err = s.ReadRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestReadEntries(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.BeginRun(ctx, "add", "machine-a", false)
	require.NoError(t, err)
	require.NoError(t, s.WriteExecution(ctx, createTestExecution(first, 1, "0000000a", OutcomeSuccess)))
	require.NoError(t, s.FinishRun(ctx, first, nil))

	second, err := s.BeginRun(ctx, "sync", "machine-a", true)
	require.NoError(t, err)
	require.NoError(t, s.WriteExecution(ctx, createTestExecution(second, 2, "0000000b", OutcomeSuccess)))
	require.NoError(t, s.WriteExecution(ctx, createTestExecution(second, 3, "0000000a", OutcomeFailure)))

	t.Run("all newest first", func(t *testing.T) {
		entries, err := s.ReadEntries(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, []int64{3, 2, 1}, []int64{entries[0].Seq, entries[1].Seq, entries[2].Seq})
		assert.Equal(t, "sync", entries[0].Operation)
		assert.True(t, entries[0].TestRun)
		assert.Equal(t, "add", entries[2].Operation)
		assert.False(t, entries[2].TestRun)
	})

	t.Run("by piece", func(t *testing.T) {
		entries, err := s.ReadEntries(ctx, Filter{PieceID: "0000000A"})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, OutcomeFailure, entries[0].Outcome)
		assert.Equal(t, OutcomeSuccess, entries[1].Outcome)
	})

	t.Run("limit", func(t *testing.T) {
		entries, err := s.ReadEntries(ctx, Filter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(3), entries[0].Seq)
	})

	t.Run("unknown piece", func(t *testing.T) {
		entries, err := s.ReadEntries(ctx, Filter{PieceID: "ffffffff"})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
