package cli

import (
	"github.com/spf13/cobra"
)

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push local edits to tracked files",
		Long: `Show the diff of every edited file under files/ and, after
confirmation, commit and push it.

Example:
  falconf push`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(rootOpts, cmd)
		},
	}
	return cmd
}

type pushResult struct {
	Pushed bool `json:"pushed"`
}

func (r pushResult) String() string {
	if !r.Pushed {
		return "Nothing to push"
	}
	return "Pushed tracked files"
}

func runPush(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	svc, err := openService(opts, cmd)
	if err != nil {
		return formatter.Fail("push", err)
	}
	defer svc.Close()

	pushed, err := svc.Push(cmd.Context())
	if err != nil {
		return formatter.Fail("push", err)
	}
	return formatter.Success(pushResult{Pushed: pushed})
}
