package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GideonBear/falconf/internal/engine"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull the ledger and apply it to this machine",
		Long: `Pull the repository, execute every piece not yet done here, undo every
piece marked for undo that is still done here, and push the result.

Example:
  falconf sync
  falconf sync --test-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, cmd)
		},
	}
	return cmd
}

type reportResult struct {
	Executed []string `json:"executed"`
	Undone   []string `json:"undone"`
}

func newReportResult(r engine.Report) reportResult {
	return reportResult{Executed: idStrings(r.Executed), Undone: idStrings(r.Undone)}
}

func (r reportResult) String() string {
	if len(r.Executed) == 0 && len(r.Undone) == 0 {
		return "Up to date"
	}
	return fmt.Sprintf("Executed %d, undone %d", len(r.Executed), len(r.Undone))
}

func runSync(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	svc, err := openService(opts, cmd)
	if err != nil {
		return formatter.Fail("sync", err)
	}
	defer svc.Close()

	report, err := svc.Sync(cmd.Context())
	if err != nil {
		formatter.VerboseLog("executed %v, undone %v before the failure", idStrings(report.Executed), idStrings(report.Undone))
		return formatter.Fail("sync", err)
	}
	return formatter.Success(newReportResult(report))
}
