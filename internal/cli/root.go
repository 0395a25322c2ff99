package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GideonBear/falconf/internal/config"
	"github.com/GideonBear/falconf/internal/installation"
	"github.com/GideonBear/falconf/internal/logging"
	"github.com/GideonBear/falconf/internal/pieces"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Path      string
	Verbose   bool
	LogLevel  string
	LogFormat string
	TestRun   bool
	Format    string // "json" | "text"
	NoColor   bool

	// Resolved by the root command before any subcommand runs.
	Root   string
	Logger *slog.Logger

	// Runner and Prompter replace the real ones in tests.
	Runner   pieces.CommandRunner
	Prompter pieces.Prompter
	Hostname string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the falconf CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "falconf",
		Short: "falconf - keep machines configured from one git repository",
		Long: `falconf records configuration pieces (apt packages, shell commands,
tracked files and manual steps) in a ledger kept in a git repository, and
brings every machine that shares the repository up to date with it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return setup(opts, cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Path, "path", "", "installation root (default $FALCONF_PATH or ~/.falconf)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (log level debug)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", logging.FormatText, "log format (text|json)")
	cmd.PersistentFlags().BoolVar(&opts.TestRun, "test-run", false, "mark pieces as done without running them")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewUndoCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewPushCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// setup resolves the installation root and installs the logger. The log
// level comes from the flags, then the environment, then config.toml.
func setup(opts *RootOptions, cmd *cobra.Command) error {
	root, err := installation.ResolveRoot(opts.Path, os.LookupEnv)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolve installation root", err)
	}
	opts.Root = root

	level := config.Default().Log.Level
	if cfg, err := config.Load(filepath.Join(root, config.FileName)); err == nil {
		level = cfg.Log.Level
	}
	envCfg := config.Config{Log: config.LogConfig{Level: level}}
	if err := envCfg.ApplyEnv(os.LookupEnv); err != nil {
		return WrapExitError(ExitCommandError, "environment", err)
	}
	level = envCfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	if opts.Verbose {
		level = "debug"
	}

	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return WrapExitError(ExitCommandError, "log level", err)
	}
	logger, err := logging.New(cmd.ErrOrStderr(), lvl, opts.LogFormat)
	if err != nil {
		return WrapExitError(ExitCommandError, "log format", err)
	}
	opts.Logger = logger
	slog.SetDefault(logger)
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
