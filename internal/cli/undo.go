package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GideonBear/falconf/internal/app"
)

// UndoOptions holds flags for the undo command.
type UndoOptions struct {
	*RootOptions
	DoneHere bool
}

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UndoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "undo <id>...",
		Short: "Mark pieces for undo on every machine",
		Long: `Mark pieces for undo and undo them on this machine. Other machines undo
them on their next sync. Use - for the most recently added piece.

Example:
  falconf undo 0badf00d
  falconf undo - --done-here`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndo(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DoneHere, "done-here", false, "record the undo here without running it")

	return cmd
}

type undoResult struct {
	Marked int      `json:"marked"`
	Undone []string `json:"undone"`
}

func (r undoResult) String() string {
	if len(r.Undone) == 0 {
		return fmt.Sprintf("Marked %d piece(s) for undo", r.Marked)
	}
	return fmt.Sprintf("Marked %d piece(s) for undo; undone here: %s", r.Marked, strings.Join(r.Undone, ", "))
}

func runUndo(opts *UndoOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	refs, err := parseRefs(args)
	if err != nil {
		return err
	}

	svc, err := openService(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail("undo", err)
	}
	defer svc.Close()

	report, err := svc.Undo(cmd.Context(), app.UndoRequest{Refs: refs, DoneHere: opts.DoneHere})
	if err != nil {
		return formatter.Fail("undo", err)
	}
	return formatter.Success(undoResult{Marked: len(refs), Undone: idStrings(report.Undone)})
}
