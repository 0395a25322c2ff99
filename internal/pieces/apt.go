package pieces

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GideonBear/falconf/internal/ledger"
)

// AptOptions configures the package manager invocation.
type AptOptions struct {
	// Program is the package manager binary, "apt" when empty.
	Program string

	// Sudo prefixes the invocation with sudo.
	Sudo bool
}

// AptKind installs and removes packages in one package manager
// transaction per group.
type AptKind struct {
	runner CommandRunner
	opts   AptOptions
	logger *slog.Logger
}

// NewAptKind creates the apt capability.
func NewAptKind(runner CommandRunner, opts AptOptions, logger *slog.Logger) *AptKind {
	if opts.Program == "" {
		opts.Program = "apt"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AptKind{runner: runner, opts: opts, logger: logger}
}

// Kind implements Capability.
func (k *AptKind) Kind() ledger.Kind { return ledger.KindApt }

// ExecuteBulk installs every package of the group.
func (k *AptKind) ExecuteBulk(ctx context.Context, ectx ExecContext, group []ledger.Piece) error {
	return k.run(ctx, []string{"install", "-y"}, group)
}

// UndoBulk removes every package of the group along with orphaned
// dependencies.
func (k *AptKind) UndoBulk(ctx context.Context, ectx ExecContext, group []ledger.Piece) error {
	return k.run(ctx, []string{"remove", "--autoremove", "-y"}, group)
}

func (k *AptKind) run(ctx context.Context, sub []string, group []ledger.Piece) error {
	if len(group) == 0 {
		return nil
	}
	args := append([]string{}, sub...)
	for _, p := range group {
		if p.Apt == nil {
			return fmt.Errorf("apt: unexpected %s piece in group", p.Kind)
		}
		args = append(args, p.Apt.Package)
	}

	name := k.opts.Program
	if k.opts.Sudo {
		args = append([]string{name}, args...)
		name = "sudo"
	}
	k.logger.Info("running package manager", "command", name, "args", args)
	if err := runChecked(ctx, k.runner, name, args...); err != nil {
		return fmt.Errorf("apt: %w", err)
	}
	return nil
}
