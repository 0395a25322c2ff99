package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GideonBear/falconf/internal/app"
	"github.com/GideonBear/falconf/internal/config"
	"github.com/GideonBear/falconf/internal/installation"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Remote string
	New    bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up falconf on this machine",
		Long: `Create the installation root, clone the repository and register this
machine in the ledger.

With --new the remote must be empty and a fresh repository is created.

Example:
  falconf init --remote git@example.com:me/conf.git --new
  falconf init --remote git@example.com:me/conf.git`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Remote, "remote", "", "git remote of the repository (required)")
	cmd.Flags().BoolVar(&opts.New, "new", false, "create a new repository on an empty remote")
	_ = cmd.MarkFlagRequired("remote")

	return cmd
}

type initResult struct {
	Root    string `json:"root"`
	Machine string `json:"machine"`
}

func (r initResult) String() string {
	return fmt.Sprintf("Initialized falconf in %s (machine %s)", r.Root, r.Machine)
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg := config.Default()
	cfg.Remote = opts.Remote
	svc, err := app.Init(cmd.Context(), app.InitRequest{
		Root:   opts.Root,
		Remote: opts.Remote,
		New:    opts.New,
		Config: cfg,
	}, appOptions(opts.RootOptions, cmd), installation.Options{Logger: opts.Logger})
	if err != nil {
		return formatter.Fail("init", err)
	}
	defer svc.Close()

	inst := svc.Installation()
	return formatter.Success(initResult{Root: inst.Root(), Machine: inst.Machine().String()})
}
