package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/GideonBear/falconf/internal/app"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Machine  string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s on %s\n", e.Type, e.Machine)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// evaluateAssertions checks every assertion and returns the failures.
// Machines pull before their ledger is inspected.
func (h *Harness) evaluateAssertions(ctx context.Context, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := h.evaluate(ctx, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func (h *Harness) evaluate(ctx context.Context, a Assertion) error {
	m := h.machines[a.Machine]
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Machine: a.Machine, Expected: expected, Actual: actual}
	}

	switch a.Type {
	case AssertCommands:
		got := m.runner.CommandLines()
		if !slices.Equal(got, a.Commands) {
			return fail(fmt.Sprintf("%q", a.Commands), fmt.Sprintf("%q", got))
		}
		return nil

	case AssertTodo, AssertUnused:
		items, err := m.svc.List(ctx)
		if err != nil {
			return fail("list to succeed", err.Error())
		}
		item, ok := h.find(items, a.Piece)
		if !ok {
			return fail("piece "+a.Piece+" in the ledger", "not found")
		}
		if a.Type == AssertTodo {
			if got := item.Todo.String(); got != a.Todo {
				return fail(fmt.Sprintf("todo %s for %s", a.Todo, a.Piece), got)
			}
			return nil
		}
		if item.Unused != *a.Unused {
			return fail(fmt.Sprintf("unused=%t for %s", *a.Unused, a.Piece), fmt.Sprintf("unused=%t", item.Unused))
		}
		return nil

	case AssertPieceCount:
		items, err := m.svc.List(ctx)
		if err != nil {
			return fail("list to succeed", err.Error())
		}
		if len(items) != *a.Count {
			return fail(fmt.Sprintf("%d pieces", *a.Count), fmt.Sprintf("%d pieces", len(items)))
		}
		return nil

	case AssertJournalCount:
		req := app.HistoryRequest{}
		if a.Piece != "" {
			req.Piece = h.aliases[a.Piece].String()
		}
		entries, err := m.svc.History(ctx, req)
		if err != nil {
			return fail("history to succeed", err.Error())
		}
		if len(entries) != *a.Count {
			return fail(fmt.Sprintf("%d journal entries", *a.Count), fmt.Sprintf("%d journal entries", len(entries)))
		}
		return nil
	}
	return fail("a known assertion type", a.Type)
}

func (h *Harness) find(items []app.Item, alias string) (app.Item, bool) {
	id, ok := h.aliases[alias]
	if !ok {
		return app.Item{}, false
	}
	for _, it := range items {
		if it.Record.ID() == id {
			return it, true
		}
	}
	return app.Item{}, false
}
