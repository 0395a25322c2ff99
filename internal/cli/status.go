package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GideonBear/falconf/internal/app"
	"github.com/GideonBear/falconf/internal/installation"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of this installation",
		Long: `Show the installation root, the state of the local repository and the
pieces this machine still has to execute or undo. The remote is fetched
but nothing is merged.

Example:
  falconf status
  falconf status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	return cmd
}

type statusResult struct {
	Root      string   `json:"root"`
	Machine   string   `json:"machine"`
	Hostname  string   `json:"hostname,omitempty"`
	Remote    string   `json:"remote"`
	State     string   `json:"state"`
	Head      string   `json:"head,omitempty"`
	Ahead     int      `json:"ahead"`
	Behind    int      `json:"behind"`
	ToExecute []string `json:"to_execute"`
	ToUndo    []string `json:"to_undo"`
}

func newStatusResult(st app.StatusReport) statusResult {
	return statusResult{
		Root:      st.Root,
		Machine:   st.Machine.String(),
		Hostname:  st.Hostname,
		Remote:    st.Remote,
		State:     st.Repo.State.String(),
		Head:      st.Repo.Head,
		Ahead:     st.Repo.Ahead,
		Behind:    st.Repo.Behind,
		ToExecute: idStrings(st.ToExecute),
		ToUndo:    idStrings(st.ToUndo),
	}
}

func (r statusResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "root:       %s\n", r.Root)
	fmt.Fprintf(&b, "machine:    %s", r.Machine)
	if r.Hostname != "" {
		fmt.Fprintf(&b, " (%s)", r.Hostname)
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "remote:     %s\n", r.Remote)
	fmt.Fprintf(&b, "repository: %s", r.State)
	if r.Ahead > 0 || r.Behind > 0 {
		fmt.Fprintf(&b, " (ahead %d, behind %d)", r.Ahead, r.Behind)
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "to execute: %s\n", listOrNone(r.ToExecute))
	fmt.Fprintf(&b, "to undo:    %s", listOrNone(r.ToUndo))
	return b.String()
}

func listOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st, err := app.Status(cmd.Context(), opts.Root, installation.Options{Logger: opts.Logger})
	if err != nil {
		return formatter.Fail("status", err)
	}
	return formatter.Success(newStatusResult(st))
}
