package pieces

import (
	"context"
	"fmt"

	"github.com/GideonBear/falconf/internal/ledger"
)

// ManualKind shows manual steps to the operator.
type ManualKind struct {
	prompter Prompter
}

// NewManualKind creates the manual capability.
func NewManualKind(prompter Prompter) *ManualKind {
	return &ManualKind{prompter: prompter}
}

// Kind implements Capability.
func (k *ManualKind) Kind() ledger.Kind { return ledger.KindManual }

// Execute shows the message and waits for the operator.
func (k *ManualKind) Execute(ctx context.Context, ectx ExecContext, piece ledger.Piece) error {
	if piece.Manual == nil {
		return fmt.Errorf("manual: unexpected %s piece", piece.Kind)
	}
	return k.show(piece.Manual.Message)
}

// Undo asks the operator to revert the step.
func (k *ManualKind) Undo(ctx context.Context, ectx ExecContext, piece ledger.Piece) error {
	if piece.Manual == nil {
		return fmt.Errorf("manual: unexpected %s piece", piece.Kind)
	}
	return k.show("UNDO the following change: " + piece.Manual.Message)
}

func (k *ManualKind) show(message string) error {
	text := fmt.Sprintf("Manual action required\n%s\nContinue when the action is performed.", message)
	if err := k.prompter.WaitForEnter(text); err != nil {
		return fmt.Errorf("manual: %w", err)
	}
	return nil
}
