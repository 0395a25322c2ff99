package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GideonBear/falconf/internal/app"
	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/pieces"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Kind            string
	Comment         string
	Undo            string
	ExpectedContent string
	DoneHere        bool
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add [flags] <value>...",
		Short: "Add a piece and apply it here",
		Long: `Add a piece to the ledger, execute it on this machine and push it.

Without --kind the kind is detected from the value: "apt install <pkg>"
becomes an apt piece, anything else a command. Flags must come before the
value.

Example:
  falconf add apt install ripgrep
  falconf add --undo 'rm ~/.hushlogin' touch ~/.hushlogin
  falconf add --kind file /etc/hosts
  falconf add --kind manual Log in to the password manager`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args, cmd)
		},
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "piece kind (apt|command|file|manual); detected when empty")
	cmd.Flags().StringVarP(&opts.Comment, "comment", "c", "", "comment shown in the listing")
	cmd.Flags().StringVar(&opts.Undo, "undo", "", "undo command (command pieces only)")
	cmd.Flags().StringVar(&opts.ExpectedContent, "expected-content", "", "expected previous content of the file (file pieces only)")
	cmd.Flags().BoolVar(&opts.DoneHere, "done-here", false, "record the piece as done here without executing it")

	return cmd
}

type addResult struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Piece string `json:"piece"`
}

func (r addResult) String() string {
	return fmt.Sprintf("Added [%s] %s", r.ID, r.Piece)
}

func runAdd(opts *AddOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	spec := pieces.Spec{Value: args, Undo: opts.Undo}
	if opts.Kind != "" {
		kind, err := ledger.ParseKind(opts.Kind)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
		spec.Kind = kind
	}
	if cmd.Flags().Changed("expected-content") {
		content := opts.ExpectedContent
		spec.ExpectedContent = &content
	}

	svc, err := openService(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail("add", err)
	}
	defer svc.Close()

	rec, err := svc.Add(cmd.Context(), app.AddRequest{
		Spec:     spec,
		Comment:  opts.Comment,
		DoneHere: opts.DoneHere,
	})
	if err != nil {
		return formatter.Fail("add", err)
	}
	return formatter.Success(addResult{
		ID:    rec.ID().String(),
		Kind:  string(rec.Kind()),
		Piece: rec.Piece().String(),
	})
}
