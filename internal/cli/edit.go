package cli

import (
	"github.com/spf13/cobra"

	"github.com/GideonBear/falconf/internal/app"
)

// EditOptions holds flags for the edit command.
type EditOptions struct {
	*RootOptions
	Comment       string
	RemoveComment bool
	Undo          string
	RemoveUndo    bool
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the comment or undo command of a piece",
		Long: `Change the comment of a piece, or the undo command of a command piece.
Use - for the most recently added piece.

Example:
  falconf edit - --comment "for the laptop"
  falconf edit 0badf00d --undo 'rm ~/.hushlogin'
  falconf edit 0badf00d --remove-comment`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Comment, "comment", "c", "", "set the comment")
	cmd.Flags().BoolVar(&opts.RemoveComment, "remove-comment", false, "remove the comment")
	cmd.Flags().StringVar(&opts.Undo, "undo", "", "set the undo command (command pieces only)")
	cmd.Flags().BoolVar(&opts.RemoveUndo, "remove-undo", false, "remove the undo command")
	cmd.MarkFlagsMutuallyExclusive("comment", "remove-comment")
	cmd.MarkFlagsMutuallyExclusive("undo", "remove-undo")

	return cmd
}

type editResult struct {
	ID string `json:"id"`
}

func (r editResult) String() string {
	return "Edited " + r.ID
}

func runEdit(opts *EditOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	refs, err := parseRefs([]string{arg})
	if err != nil {
		return err
	}
	req := app.EditRequest{
		Ref:           refs[0],
		RemoveComment: opts.RemoveComment,
		RemoveUndo:    opts.RemoveUndo,
	}
	if cmd.Flags().Changed("comment") {
		c := opts.Comment
		req.Comment = &c
	}
	if cmd.Flags().Changed("undo") {
		u := opts.Undo
		req.Undo = &u
	}

	svc, err := openService(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail("edit", err)
	}
	defer svc.Close()

	if err := svc.Edit(cmd.Context(), req); err != nil {
		return formatter.Fail("edit", err)
	}
	return formatter.Success(editResult{ID: arg})
}
