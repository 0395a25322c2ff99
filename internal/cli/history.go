package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/GideonBear/falconf/internal/app"
	"github.com/GideonBear/falconf/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Piece string
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show what ran on this machine",
		Long: `List the executions recorded in this machine's journal, newest first.
The journal is local and never pushed.

Example:
  falconf history
  falconf history --piece 0badf00d --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Piece, "piece", "", "only show this piece (id or -)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of entries (0 for all)")

	return cmd
}

type historyEntry struct {
	Seq       int64  `json:"seq"`
	StartedAt string `json:"started_at"`
	Operation string `json:"operation"`
	PieceID   string `json:"piece_id"`
	Kind      string `json:"kind"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
	TestRun   bool   `json:"test_run,omitempty"`
	Error     string `json:"error,omitempty"`
}

type historyResult []historyEntry

func newHistoryResult(entries []store.Entry) historyResult {
	out := make(historyResult, len(entries))
	for i, e := range entries {
		out[i] = historyEntry{
			Seq:       e.Seq,
			StartedAt: e.StartedAt.Format(time.RFC3339),
			Operation: e.Operation,
			PieceID:   e.PieceID,
			Kind:      e.Kind,
			Action:    e.Action,
			Outcome:   e.Outcome,
			TestRun:   e.TestRun,
			Error:     e.Error,
		}
	}
	return out
}

func (r historyResult) String() string {
	if len(r) == 0 {
		return "No history"
	}
	var b strings.Builder
	for i, e := range r {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%6d  %s  %-6s [%s] %s %s: %s", e.Seq, e.StartedAt, e.Operation, e.PieceID, e.Action, e.Kind, e.Outcome)
		if e.TestRun {
			b.WriteString(" (test run)")
		}
		if e.Error != "" {
			b.WriteString(" - " + e.Error)
		}
	}
	return b.String()
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}

	svc, err := openService(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail("history", err)
	}
	defer svc.Close()

	entries, err := svc.History(cmd.Context(), app.HistoryRequest{Piece: opts.Piece, Limit: opts.Limit})
	if err != nil {
		return formatter.Fail("history", err)
	}
	return formatter.Success(newHistoryResult(entries))
}
