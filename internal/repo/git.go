package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Git runs the git CLI against one directory. Every command gets
// "-C <dir>" prepended.
type Git struct {
	dir string
}

// NewGit returns a Git targeting dir.
func NewGit(dir string) *Git {
	return &Git{dir: dir}
}

// Dir returns the directory commands run in.
func (g *Git) Dir() string {
	return g.dir
}

// Run executes a git command and returns stdout. Stderr is included in
// the error on failure.
func (g *Git) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", g.dir}, args...)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Never block on credential or editor prompts.
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_EDITOR=true")

	if err := cmd.Run(); err != nil {
		return "", &CommandError{
			Args:   args,
			Dir:    g.dir,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// Output runs a git command and returns stdout with surrounding
// whitespace trimmed.
func (g *Git) Output(ctx context.Context, args ...string) (string, error) {
	out, err := g.Run(ctx, args...)
	return strings.TrimSpace(out), err
}

// Check runs a command whose exit status is an answer: exit 0 is true,
// exit 1 is false, anything else is an error.
func (g *Git) Check(ctx context.Context, args ...string) (bool, error) {
	_, err := g.Run(ctx, args...)
	if err == nil {
		return true, nil
	}
	if ExitCode(err) == 1 {
		return false, nil
	}
	return false, err
}

// CommandError is a failed git command.
type CommandError struct {
	Args   []string
	Dir    string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s in %s: %v (stderr: %s)", strings.Join(e.Args, " "), e.Dir, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode returns the exit status carried by err, or -1.
func ExitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
