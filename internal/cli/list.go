package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the pieces in the ledger",
		Long: `Pull the repository and list every piece in the ledger.

Pieces marked for undo are struck through; pieces no machine depends on
anymore are flagged (unused) and can be removed.

Example:
  falconf list
  falconf list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	svc, err := openService(opts, cmd)
	if err != nil {
		return formatter.Fail("list", err)
	}
	defer svc.Close()

	items, err := svc.List(cmd.Context())
	if err != nil {
		return formatter.Fail("list", err)
	}
	if opts.Format == "json" {
		return formatter.Success(listEntries(items))
	}
	return renderList(cmd.OutOrStdout(), items, !opts.NoColor && !color.NoColor)
}
