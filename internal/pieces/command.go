package pieces

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kballard/go-shellquote"

	"github.com/GideonBear/falconf/internal/ledger"
)

// CommandKind runs command pieces through bash.
type CommandKind struct {
	runner CommandRunner
	logger *slog.Logger
}

// NewCommandKind creates the command capability.
func NewCommandKind(runner CommandRunner, logger *slog.Logger) *CommandKind {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandKind{runner: runner, logger: logger}
}

// Kind implements Capability.
func (k *CommandKind) Kind() ledger.Kind { return ledger.KindCommand }

// Execute runs the command.
func (k *CommandKind) Execute(ctx context.Context, ectx ExecContext, piece ledger.Piece) error {
	if piece.Command == nil {
		return fmt.Errorf("command: unexpected %s piece", piece.Kind)
	}
	return k.bash(ctx, piece.Command.Run)
}

// Undo runs the undo command, or returns ErrUndefinedUndo when there is none.
func (k *CommandKind) Undo(ctx context.Context, ectx ExecContext, piece ledger.Piece) error {
	if piece.Command == nil {
		return fmt.Errorf("command: unexpected %s piece", piece.Kind)
	}
	if piece.Command.Undo == "" {
		return fmt.Errorf("%w for command %q; set one with `falconf edit --undo`", ErrUndefinedUndo, piece.Command.Run)
	}
	return k.bash(ctx, piece.Command.Undo)
}

func (k *CommandKind) bash(ctx context.Context, script string) error {
	k.logger.Info("running command", "command", script)
	if err := runChecked(ctx, k.runner, "bash", "-c", script); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

// JoinCommand turns command-line words into the shell text of a command
// piece. A single word is treated as shell text already and normalized by
// splitting and re-quoting it.
func JoinCommand(value []string) (string, error) {
	if len(value) == 1 {
		words, err := shellquote.Split(value[0])
		if err != nil {
			return "", fmt.Errorf("%w: %v", ledger.ErrInvalidPiece, err)
		}
		return shellquote.Join(words...), nil
	}
	return shellquote.Join(value...), nil
}
