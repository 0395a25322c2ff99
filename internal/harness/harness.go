package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/GideonBear/falconf/internal/app"
	"github.com/GideonBear/falconf/internal/engine"
	"github.com/GideonBear/falconf/internal/installation"
	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/logging"
	"github.com/GideonBear/falconf/internal/pieces"
	"github.com/GideonBear/falconf/internal/repo"
	"github.com/GideonBear/falconf/internal/testutil"
)

// Error classes reported in traces and matched by Expect.Error.
const (
	ErrClassExecution = "execution_failure"
	ErrClassConflict  = "sync_conflict"
	ErrClassLocal     = "local_changes"
	ErrClassCorrupt   = "corrupt"
	ErrClassInUse     = "in_use"
	ErrClassNotFound  = "not_found"
	ErrClassNoUndo    = "undefined_undo"
	ErrClassAborted   = "aborted"
	ErrClassInvariant = "invariant_violation"
	ErrClassInvalid   = "invalid_piece"
	ErrClassOther     = "error"
)

// ErrorClass names the kind of err for traces; "" for nil.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, engine.ErrExecutionFailure):
		return ErrClassExecution
	case errors.Is(err, repo.ErrSyncConflict):
		return ErrClassConflict
	case errors.Is(err, repo.ErrLocalChanges):
		return ErrClassLocal
	case errors.Is(err, repo.ErrCorrupt):
		return ErrClassCorrupt
	case errors.Is(err, app.ErrInUse):
		return ErrClassInUse
	case errors.Is(err, ledger.ErrNotFound):
		return ErrClassNotFound
	case errors.Is(err, pieces.ErrUndefinedUndo):
		return ErrClassNoUndo
	case errors.Is(err, app.ErrAborted):
		return ErrClassAborted
	case errors.Is(err, ledger.ErrInvariantViolation):
		return ErrClassInvariant
	case errors.Is(err, ledger.ErrInvalidPiece):
		return ErrClassInvalid
	}
	return ErrClassOther
}

// machine is one simulated installation.
type machine struct {
	spec     MachineSpec
	svc      *app.Service
	runner   *testutil.FakeRunner
	prompter *testutil.ScriptedPrompter
}

// Harness is the scenario execution engine.
type Harness struct {
	dir      string
	remote   string
	machines map[string]*machine
	aliases  map[string]ledger.PieceID
	names    map[ledger.PieceID]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh bare remote in a temporary directory
// that is removed afterwards. An error is returned only when the scenario
// cannot be set up; failed expectations are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "falconf-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		dir:      dir,
		machines: make(map[string]*machine),
		aliases:  make(map[string]ledger.PieceID),
		names:    make(map[ledger.PieceID]string),
	}
	defer h.close()

	if err := h.createRemote(ctx); err != nil {
		return nil, err
	}
	for i, spec := range scenario.Machines {
		if err := h.initMachine(ctx, spec, i == 0); err != nil {
			return nil, fmt.Errorf("failed to initialize machine %s: %w", spec.Name, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		ev := h.execute(ctx, i, step)
		result.AddTrace(ev)
		for _, msg := range checkExpect(ev, step.Expect) {
			result.AddError(fmt.Sprintf("flow[%d] (%s on %s): %s", i, step.Op, step.Machine, msg))
		}
	}

	for _, msg := range h.evaluateAssertions(ctx, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) createRemote(ctx context.Context) error {
	h.remote = filepath.Join(h.dir, "remote.git")
	if _, err := repo.NewGit(h.dir).Run(ctx, "init", "--bare", h.remote); err != nil {
		return fmt.Errorf("failed to create remote: %w", err)
	}
	if _, err := repo.NewGit(h.remote).Run(ctx, "symbolic-ref", "HEAD", "refs/heads/"+repo.DefaultBranch); err != nil {
		return fmt.Errorf("failed to create remote: %w", err)
	}
	return nil
}

func (h *Harness) initMachine(ctx context.Context, spec MachineSpec, isNew bool) error {
	m := &machine{
		spec:     spec,
		runner:   &testutil.FakeRunner{},
		prompter: testutil.NewScriptedPrompter(spec.Answers...),
	}
	if len(spec.FailOn) > 0 {
		m.runner.FailWhen = func(c testutil.RunnerCall) bool {
			for _, arg := range spec.FailOn {
				if testutil.FailOnArg(arg)(c) {
					return true
				}
			}
			return false
		}
	}

	clock := testutil.NewStepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	svc, err := app.Init(ctx, app.InitRequest{
		Root:   filepath.Join(h.dir, "machines", spec.Name),
		Remote: h.remote,
		New:    isNew,
	}, app.Options{
		Logger:   logging.Discard(),
		Runner:   m.runner,
		Prompter: m.prompter,
		TestRun:  spec.TestRun,
		Hostname: spec.Name,
	}, installation.Options{Now: clock.Now})
	if err != nil {
		return err
	}
	m.svc = svc
	h.machines[spec.Name] = m
	return nil
}

func (h *Harness) close() {
	for _, m := range h.machines {
		_ = m.svc.Close()
	}
}

func (h *Harness) refs(aliases []string) []ledger.PieceRef {
	refs := make([]ledger.PieceRef, len(aliases))
	for i, a := range aliases {
		if a == ledger.LastRef {
			refs[i] = ledger.RefLast()
		} else {
			refs[i] = ledger.RefID(h.aliases[a])
		}
	}
	return refs
}

// alias maps scheduler output back to aliases.
func (h *Harness) alias(ids []ledger.PieceID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		name, ok := h.names[id]
		if !ok {
			name = id.String()
		}
		out[i] = name
	}
	return out
}

func (h *Harness) execute(ctx context.Context, index int, step Step) TraceEvent {
	m := h.machines[step.Machine]
	ev := TraceEvent{Step: index, Machine: step.Machine, Op: step.Op, Pieces: step.Pieces}

	var err error
	switch step.Op {
	case OpAdd:
		ev.Pieces = []string{step.Alias}
		req := app.AddRequest{
			Spec:     pieces.Spec{Kind: ledger.Kind(step.Kind), Value: step.Value},
			DoneHere: step.DoneHere,
		}
		if step.Undo != nil {
			req.Spec.Undo = *step.Undo
		}
		if step.Comment != nil {
			req.Comment = *step.Comment
		}
		var rec *ledger.Record
		rec, err = m.svc.Add(ctx, req)
		if rec != nil {
			h.aliases[step.Alias] = rec.ID()
			h.names[rec.ID()] = step.Alias
			if err == nil && !step.DoneHere {
				ev.Executed = []string{step.Alias}
			}
		}
	case OpSync:
		var report engine.Report
		report, err = m.svc.Sync(ctx)
		ev.Executed, ev.Undone = h.alias(report.Executed), h.alias(report.Undone)
	case OpUndo:
		var report engine.Report
		report, err = m.svc.Undo(ctx, app.UndoRequest{Refs: h.refs(step.Pieces), DoneHere: step.DoneHere})
		ev.Undone = h.alias(report.Undone)
	case OpRemove:
		_, err = m.svc.Remove(ctx, app.RemoveRequest{Refs: h.refs(step.Pieces), Force: step.Force})
	case OpEdit:
		err = m.svc.Edit(ctx, app.EditRequest{
			Ref:           h.refs(step.Pieces)[0],
			Comment:       step.Comment,
			RemoveComment: step.RemoveComment,
			Undo:          step.Undo,
			RemoveUndo:    step.RemoveUndo,
		})
	}
	ev.Error = ErrorClass(err)
	return ev
}

// checkExpect compares a step outcome with its expectation. A nil
// expectation only requires success.
func checkExpect(ev TraceEvent, expect *Expect) []string {
	if expect == nil {
		if ev.Error != "" {
			return []string{fmt.Sprintf("expected success, got %s", ev.Error)}
		}
		return nil
	}

	var errs []string
	if ev.Error != expect.Error {
		errs = append(errs, fmt.Sprintf("expected error %q, got %q", expect.Error, ev.Error))
	}
	if expect.Executed != nil && !slices.Equal(ev.Executed, expect.Executed) {
		errs = append(errs, fmt.Sprintf("expected executed %v, got %v", expect.Executed, ev.Executed))
	}
	if expect.Undone != nil && !slices.Equal(ev.Undone, expect.Undone) {
		errs = append(errs, fmt.Sprintf("expected undone %v, got %v", expect.Undone, ev.Undone))
	}
	return errs
}
