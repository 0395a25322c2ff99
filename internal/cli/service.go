package cli

import (
	"github.com/spf13/cobra"

	"github.com/GideonBear/falconf/internal/app"
	"github.com/GideonBear/falconf/internal/installation"
	"github.com/GideonBear/falconf/internal/ledger"
)

func appOptions(opts *RootOptions, cmd *cobra.Command) app.Options {
	prompter := opts.Prompter
	if prompter == nil {
		prompter = NewTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	}
	return app.Options{
		Logger:   opts.Logger,
		Runner:   opts.Runner,
		Prompter: prompter,
		TestRun:  opts.TestRun,
		Hostname: opts.Hostname,
	}
}

func openService(opts *RootOptions, cmd *cobra.Command) (*app.Service, error) {
	return app.Open(cmd.Context(), opts.Root, appOptions(opts, cmd), installation.Options{Logger: opts.Logger})
}

// parseRefs parses piece ids and "-" given as arguments.
func parseRefs(args []string) ([]ledger.PieceRef, error) {
	refs := make([]ledger.PieceRef, len(args))
	for i, a := range args {
		ref, err := ledger.ParsePieceRef(a)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid piece id", err)
		}
		refs[i] = ref
	}
	return refs, nil
}

func idStrings(ids []ledger.PieceID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
