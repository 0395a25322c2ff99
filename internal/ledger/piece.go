package ledger

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind names a piece variant.
type Kind string

const (
	KindApt     Kind = "apt"
	KindCommand Kind = "command"
	KindFile    Kind = "file"
	KindManual  Kind = "manual"
)

// Kinds lists every kind in dispatch order.
var Kinds = []Kind{KindApt, KindCommand, KindFile, KindManual}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown kind %q (want one of %v)", ErrInvalidPiece, s, Kinds)
}

// Apt installs one package through the system package manager.
type Apt struct {
	Package string
}

// Command runs a shell command. Undo is empty when no undo is defined.
type Command struct {
	Run  string
	Undo string
}

// File tracks a file stored under files/ and symlinked into Location.
type File struct {
	Location string

	// ExpectedPreviousContent, when set, is what Location must contain
	// before it is replaced by the symlink.
	ExpectedPreviousContent *string
}

// RelativeLocation is Location without its leading separator; the path of
// the tracked content inside files/.
func (f File) RelativeLocation() string {
	return strings.TrimPrefix(f.Location, "/")
}

// Manual asks the operator to perform a step by hand.
type Manual struct {
	Message string
}

// Piece is the declared action of a Record. Exactly one of the variant
// pointers is set, matching Kind.
type Piece struct {
	Kind    Kind
	Apt     *Apt
	Command *Command
	File    *File
	Manual  *Manual
}

// NewApt builds an apt piece.
func NewApt(pkg string) (Piece, error) {
	return aptPiece(norm.NFC.String(strings.TrimSpace(pkg)))
}

func aptPiece(pkg string) (Piece, error) {
	if pkg == "" || strings.ContainsAny(pkg, " \t\n") {
		return Piece{}, fmt.Errorf("%w: apt package %q", ErrInvalidPiece, pkg)
	}
	return Piece{Kind: KindApt, Apt: &Apt{Package: pkg}}, nil
}

// NewCommand builds a command piece from already-quoted shell text.
func NewCommand(run, undo string) (Piece, error) {
	return commandPiece(norm.NFC.String(run), norm.NFC.String(undo))
}

func commandPiece(run, undo string) (Piece, error) {
	if strings.TrimSpace(run) == "" {
		return Piece{}, fmt.Errorf("%w: empty command", ErrInvalidPiece)
	}
	return Piece{Kind: KindCommand, Command: &Command{Run: run, Undo: undo}}, nil
}

// NewFile builds a file piece. The location must be absolute.
func NewFile(location string, expected *string) (Piece, error) {
	if !strings.HasPrefix(location, "/") {
		return Piece{}, fmt.Errorf("%w: file location must be an absolute path (starting with '/'), got %q", ErrInvalidPiece, location)
	}
	clean := filepath.Clean(location)
	if clean == "/" {
		return Piece{}, fmt.Errorf("%w: file location %q names the root directory", ErrInvalidPiece, location)
	}
	f := &File{Location: clean}
	if expected != nil {
		content := *expected
		f.ExpectedPreviousContent = &content
	}
	return Piece{Kind: KindFile, File: f}, nil
}

// NewManual builds a manual piece.
func NewManual(message string) (Piece, error) {
	return manualPiece(norm.NFC.String(message))
}

func manualPiece(message string) (Piece, error) {
	if strings.TrimSpace(message) == "" {
		return Piece{}, fmt.Errorf("%w: empty manual message", ErrInvalidPiece)
	}
	return Piece{Kind: KindManual, Manual: &Manual{Message: message}}, nil
}

// Validate checks that exactly the variant named by Kind is set.
func (p Piece) Validate() error {
	set := 0
	for _, present := range []bool{p.Apt != nil, p.Command != nil, p.File != nil, p.Manual != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: expected exactly one variant, got %d", ErrInvalidPiece, set)
	}
	var ok bool
	switch p.Kind {
	case KindApt:
		ok = p.Apt != nil
	case KindCommand:
		ok = p.Command != nil
	case KindFile:
		ok = p.File != nil && strings.HasPrefix(p.File.Location, "/")
	case KindManual:
		ok = p.Manual != nil
	}
	if !ok {
		return fmt.Errorf("%w: kind %q does not match its fields", ErrInvalidPiece, p.Kind)
	}
	return nil
}

// clone deep-copies the variant so records never share mutable state.
func (p Piece) clone() Piece {
	out := Piece{Kind: p.Kind}
	switch {
	case p.Apt != nil:
		v := *p.Apt
		out.Apt = &v
	case p.Command != nil:
		v := *p.Command
		out.Command = &v
	case p.File != nil:
		v := *p.File
		if p.File.ExpectedPreviousContent != nil {
			c := *p.File.ExpectedPreviousContent
			v.ExpectedPreviousContent = &c
		}
		out.File = &v
	case p.Manual != nil:
		v := *p.Manual
		out.Manual = &v
	}
	return out
}

// String is the listing text of the piece.
func (p Piece) String() string {
	switch p.Kind {
	case KindApt:
		return "apt install " + p.Apt.Package
	case KindCommand:
		return p.Command.Run
	case KindFile:
		return "Tracking file at: " + p.File.Location
	case KindManual:
		return "Manual action: " + p.Manual.Message
	}
	return fmt.Sprintf("<unknown piece %q>", p.Kind)
}
