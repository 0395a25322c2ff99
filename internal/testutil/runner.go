package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// RunnerCall is one recorded invocation of FakeRunner.
type RunnerCall struct {
	Name string
	Args []string
}

// String renders the call as a command line.
func (c RunnerCall) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// FakeRunner records commands instead of running them.
//
// FailWhen, when set, decides per call whether it fails with exit code 1.
type FakeRunner struct {
	mu       sync.Mutex
	calls    []RunnerCall
	FailWhen func(call RunnerCall) bool
}

// Run implements pieces.CommandRunner.
func (r *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
	call := RunnerCall{Name: name, Args: append([]string(nil), args...)}

	r.mu.Lock()
	r.calls = append(r.calls, call)
	fail := r.FailWhen
	r.mu.Unlock()

	if fail != nil && fail(call) {
		return nil, []byte("simulated failure"), 1, fmt.Errorf("exit status 1")
	}
	return nil, nil, 0, nil
}

// Calls returns a copy of the recorded calls.
func (r *FakeRunner) Calls() []RunnerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RunnerCall(nil), r.calls...)
}

// CommandLines returns the recorded calls as command lines.
func (r *FakeRunner) CommandLines() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// FailOnArg makes every call containing arg fail.
func FailOnArg(arg string) func(RunnerCall) bool {
	return func(c RunnerCall) bool {
		for _, a := range c.Args {
			if strings.Contains(a, arg) {
				return true
			}
		}
		return false
	}
}
