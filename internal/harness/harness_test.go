package harness

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GideonBear/falconf/internal/app"
	"github.com/GideonBear/falconf/internal/engine"
	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/pieces"
	"github.com/GideonBear/falconf/internal/repo"
	"github.com/GideonBear/falconf/internal/testutil"
)

func TestScenarios(t *testing.T) {
	testutil.RequireGit(t)

	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "scenario name must match its file")
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRunReportsFailedExpectations(t *testing.T) {
	testutil.RequireGit(t)

	scenario, err := ParseScenario([]byte(`
name: wrong_expectations
description: "Every expectation here is wrong"
machines:
  - name: a
  - name: b
flow:
  - machine: a
    op: add
    alias: x
    kind: command
    value: ["echo hi"]
    done_here: true
  - machine: b
    op: sync
    expect:
      executed: []
  - machine: b
    op: remove
    pieces: [x]
assertions:
  - type: commands
    machine: b
    commands: []
  - type: piece_count
    machine: a
    count: 0
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "expected executed [], got [x]")
	assert.Contains(t, result.Errors[1], "expected success, got in_use")
	assert.Contains(t, result.Errors[2], "Assertion failed: commands on b")
	assert.Contains(t, result.Errors[3], "1 pieces")

	require.Len(t, result.Trace, 3)
	assert.Equal(t, []string{"x"}, result.Trace[1].Executed)
	assert.Equal(t, ErrClassInUse, result.Trace[2].Error)
}

func TestErrorClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&engine.ExecutionError{Action: ledger.Execute, Kind: ledger.KindApt, Err: errors.New("exit 100")}, ErrClassExecution},
		{fmt.Errorf("sync: %w", repo.ErrSyncConflict), ErrClassConflict},
		{fmt.Errorf("sync: %w", repo.ErrLocalChanges), ErrClassLocal},
		{repo.ErrCorrupt, ErrClassCorrupt},
		{app.ErrInUse, ErrClassInUse},
		{ledger.ErrNotFound, ErrClassNotFound},
		{pieces.ErrUndefinedUndo, ErrClassNoUndo},
		{app.ErrAborted, ErrClassAborted},
		{ledger.ErrInvariantViolation, ErrClassInvariant},
		{ledger.ErrInvalidPiece, ErrClassInvalid},
		{errors.New("boom"), ErrClassOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorClass(tt.err), "%v", tt.err)
	}
}

func TestCheckExpect(t *testing.T) {
	ev := TraceEvent{Executed: []string{"a"}, Error: ErrClassExecution}

	assert.Equal(t, []string{"expected success, got execution_failure"}, checkExpect(ev, nil))
	assert.Empty(t, checkExpect(ev, &Expect{Error: ErrClassExecution, Executed: []string{"a"}}))
	assert.Empty(t, checkExpect(ev, &Expect{Error: ErrClassExecution}), "unset lists are not checked")
	assert.Len(t, checkExpect(ev, &Expect{Error: ErrClassExecution, Undone: []string{"a"}}), 1)
	assert.Len(t, checkExpect(TraceEvent{}, &Expect{Executed: []string{}}), 0)
}
