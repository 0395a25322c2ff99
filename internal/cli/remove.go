package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/GideonBear/falconf/internal/app"
)

// RemoveOptions holds flags for the remove command.
type RemoveOptions struct {
	*RootOptions
	Force bool
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "remove <id>...",
		Short: "Delete pieces from the ledger",
		Long: `Delete pieces from the ledger. A piece can only be removed once it is
unused: undone on every machine that executed it. --force removes it
anyway.

Example:
  falconf remove 0badf00d
  falconf remove --force -`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "remove pieces that are still in use")

	return cmd
}

type removeResult struct {
	Removed []string `json:"removed"`
}

func (r removeResult) String() string {
	return "Removed " + strings.Join(r.Removed, ", ")
}

func runRemove(opts *RemoveOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	refs, err := parseRefs(args)
	if err != nil {
		return err
	}

	svc, err := openService(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail("remove", err)
	}
	defer svc.Close()

	removed, err := svc.Remove(cmd.Context(), app.RemoveRequest{Refs: refs, Force: opts.Force})
	if err != nil {
		return formatter.Fail("remove", err)
	}
	return formatter.Success(removeResult{Removed: idStrings(removed)})
}
