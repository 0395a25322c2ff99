package pieces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// CommandRunner abstracts process execution for the kinds that shell out.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, exitCode int32, err error)
}

// ExecRunner runs commands on the local host. Output is captured and, when
// Stdout/Stderr are set, also streamed to them.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements CommandRunner.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdin = r.Stdin
	cmd.Stdout = tee(&stdout, r.Stdout)
	cmd.Stderr = tee(&stderr, r.Stderr)

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), int32(exitErr.ExitCode()), err
	}

	exitCode := int32(1)
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = 127
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode, err
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// runChecked runs a command and turns a failure into an error that
// carries the exit code and the tail of stderr.
func runChecked(ctx context.Context, runner CommandRunner, name string, args ...string) error {
	_, stderr, code, err := runner.Run(ctx, name, args...)
	if err == nil && code == 0 {
		return nil
	}
	msg := strings.TrimSpace(string(stderr))
	if len(msg) > 512 {
		msg = "..." + msg[len(msg)-512:]
	}
	cmdline := strings.Join(append([]string{name}, args...), " ")
	if err == nil {
		err = fmt.Errorf("exit status %d", code)
	}
	if msg == "" {
		return fmt.Errorf("%s: %w", cmdline, err)
	}
	return fmt.Errorf("%s: %w (stderr: %s)", cmdline, err, msg)
}
