package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GideonBear/falconf/internal/testutil"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "falconf", cmd.Use)
	assert.Contains(t, cmd.Long, "ledger")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"init", "sync", "add", "list", "undo", "remove", "edit", "push", "status", "history"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"path", "log-level", "log-format", "test-run", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestInitCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	initCmd, _, err := cmd.Find([]string{"init"})
	require.NoError(t, err)

	remoteFlag := initCmd.Flags().Lookup("remote")
	require.NotNil(t, remoteFlag)
	assert.Equal(t, "", remoteFlag.DefValue)
	assert.NotNil(t, initCmd.Flags().Lookup("new"))
}

func TestAddCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	addCmd, _, err := cmd.Find([]string{"add"})
	require.NoError(t, err)

	for _, name := range []string{"kind", "comment", "undo", "expected-content", "done-here"} {
		assert.NotNil(t, addCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "c", addCmd.Flags().Lookup("comment").Shorthand)
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	historyCmd, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)

	limitFlag := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "20", limitFlag.DefValue)
	assert.NotNil(t, historyCmd.Flags().Lookup("piece"))
}

// execute runs the CLI with opts and returns stdout.
func execute(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(opts)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, &RootOptions{}, "--format", "yaml", "--path", t.TempDir(), "status")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNotInstalled(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	_, err := execute(t, &RootOptions{}, "--path", root, "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidPieceID(t *testing.T) {
	_, err := execute(t, &RootOptions{}, "--path", t.TempDir(), "undo", "xyz")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCLIEndToEnd(t *testing.T) {
	remote := testutil.NewRemote(t)
	runner := &testutil.FakeRunner{}
	rootA := filepath.Join(t.TempDir(), "a")
	rootB := filepath.Join(t.TempDir(), "b")
	optsA := &RootOptions{Runner: runner, Prompter: testutil.NewScriptedPrompter(), Hostname: "host-a"}
	optsB := &RootOptions{Runner: runner, Prompter: testutil.NewScriptedPrompter(), Hostname: "host-b"}

	out, err := execute(t, optsA, "--path", rootA, "init", "--remote", remote, "--new")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized falconf in "+rootA)

	out, err = execute(t, optsA, "--path", rootA, "add", "--done-here", "-c", "greeting", "echo", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, "Added [")
	assert.Empty(t, runner.Calls())

	out, err = execute(t, optsA, "--path", rootA, "--format", "json", "list")
	require.NoError(t, err)
	var listed struct {
		Status string      `json:"status"`
		Data   []listEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "echo hi", listed.Data[0].Piece)
	assert.Equal(t, "greeting", listed.Data[0].Comment)
	assert.True(t, listed.Data[0].DoneHere)
	assert.Len(t, listed.Data[0].Hash, 64)

	_, err = execute(t, optsB, "--path", rootB, "init", "--remote", remote)
	require.NoError(t, err)

	out, err = execute(t, optsB, "--path", rootB, "sync")
	require.NoError(t, err)
	assert.Equal(t, "Executed 1, undone 0\n", out)
	assert.Equal(t, []string{"bash -c echo hi"}, runner.CommandLines())

	out, err = execute(t, optsB, "--path", rootB, "sync")
	require.NoError(t, err)
	assert.Equal(t, "Up to date\n", out)

	out, err = execute(t, optsB, "--path", rootB, "--format", "json", "status")
	require.NoError(t, err)
	var status struct {
		Data statusResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "clean", status.Data.State)
	assert.Equal(t, "host-b", status.Data.Hostname)
	assert.Empty(t, status.Data.ToExecute)

	out, err = execute(t, optsB, "--path", rootB, "--format", "json", "history", "--piece", listed.Data[0].ID)
	require.NoError(t, err)
	var history struct {
		Data []historyEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history.Data, 1)
	assert.Equal(t, "sync", history.Data[0].Operation)
	assert.Equal(t, "execute", history.Data[0].Action)
	assert.Equal(t, "success", history.Data[0].Outcome)

	_, err = execute(t, optsA, "--path", rootA, "remove", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = execute(t, optsA, "--path", rootA, "edit", "-", "--remove-comment")
	require.NoError(t, err)
	assert.Equal(t, "Edited -\n", out)
}
