package pieces

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/GideonBear/falconf/internal/ledger"
)

// Spec describes a piece as given on the command line.
type Spec struct {
	// Kind is empty to autodetect from Value.
	Kind ledger.Kind

	Value []string

	// Undo is the undo command of a command piece.
	Undo string

	// ExpectedContent is the expected previous content of a file piece.
	ExpectedContent *string
}

// Build turns a Spec into a piece.
func Build(spec Spec, logger *slog.Logger) (ledger.Piece, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(spec.Value) == 0 {
		return ledger.Piece{}, fmt.Errorf("%w: no value given", ledger.ErrInvalidPiece)
	}
	kind := spec.Kind
	var detectedPkg string
	if kind == "" {
		kind, detectedPkg = detect(spec.Value, logger)
	}
	if spec.Undo != "" && kind != ledger.KindCommand {
		return ledger.Piece{}, fmt.Errorf("%w: --undo only makes sense with a command piece, got %s", ledger.ErrInvalidPiece, kind)
	}
	if spec.ExpectedContent != nil && kind != ledger.KindFile {
		return ledger.Piece{}, fmt.Errorf("%w: expected content only makes sense with a file piece, got %s", ledger.ErrInvalidPiece, kind)
	}

	switch kind {
	case ledger.KindApt:
		if detectedPkg != "" {
			return ledger.NewApt(detectedPkg)
		}
		if len(spec.Value) != 1 {
			return ledger.Piece{}, fmt.Errorf("%w: expected a single value (package name) for 'apt' piece, got %q", ledger.ErrInvalidPiece, spec.Value)
		}
		return ledger.NewApt(spec.Value[0])
	case ledger.KindCommand:
		run, err := JoinCommand(spec.Value)
		if err != nil {
			return ledger.Piece{}, err
		}
		return ledger.NewCommand(run, spec.Undo)
	case ledger.KindFile:
		if len(spec.Value) != 1 {
			return ledger.Piece{}, fmt.Errorf("%w: expected a single value (file location) for 'file' piece, got %q", ledger.ErrInvalidPiece, spec.Value)
		}
		return ledger.NewFile(spec.Value[0], spec.ExpectedContent)
	case ledger.KindManual:
		return ledger.NewManual(strings.Join(spec.Value, " "))
	}
	return ledger.Piece{}, fmt.Errorf("%w: unknown kind %q", ledger.ErrInvalidPiece, kind)
}

// detect picks a kind for a bare command line. Simple apt installs become
// apt pieces; everything else is a command.
func detect(value []string, logger *slog.Logger) (ledger.Kind, string) {
	words := value
	if len(value) == 1 {
		if split, err := shellquote.Split(value[0]); err == nil {
			words = split
		}
	}
	if len(words) == 0 {
		return ledger.KindCommand, ""
	}

	if pkg, ok := aptInstallPackage(words); ok {
		logger.Info("using `apt` piece instead of `command`")
		return ledger.KindApt, pkg
	}
	switch words[0] {
	case "apt":
		logger.Warn("unknown `apt` command, using 'command' (instead of 'apt')")
	case "ln":
		logger.Warn("unknown `ln` command, using 'command' (instead of 'file')")
	}
	return ledger.KindCommand, ""
}

func aptInstallPackage(words []string) (string, bool) {
	switch {
	case len(words) == 3 && words[0] == "apt" && words[1] == "install":
		return words[2], !strings.HasPrefix(words[2], "-")
	case len(words) == 4 && words[0] == "apt" && words[1] == "install" && words[3] == "-y":
		return words[2], !strings.HasPrefix(words[2], "-")
	case len(words) == 4 && words[0] == "apt" && words[1] == "install" && words[2] == "-y":
		return words[3], !strings.HasPrefix(words[3], "-")
	case len(words) == 4 && words[0] == "apt" && words[1] == "-y" && words[2] == "install":
		return words[3], !strings.HasPrefix(words[3], "-")
	}
	return "", false
}
