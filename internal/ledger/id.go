package ledger

import (
	"fmt"
	"math/rand"
	"strconv"
)

// PieceID is the stable external handle of a Record.
type PieceID uint32

// String renders the id as 8 lowercase hex digits.
func (id PieceID) String() string {
	return fmt.Sprintf("%08x", uint32(id))
}

// MarshalText implements encoding.TextMarshaler.
func (id PieceID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *PieceID) UnmarshalText(text []byte) error {
	parsed, err := ParsePieceID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParsePieceID accepts exactly 8 hex digits in either case.
func ParsePieceID(s string) (PieceID, error) {
	if len(s) != 8 {
		return 0, fmt.Errorf("piece id %q: must be exactly 8 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("piece id %q: invalid hex", s)
	}
	return PieceID(v), nil
}

// LastRef is the textual shorthand for the most recently added record.
const LastRef = "-"

// PieceRef names a record either by id or as the last one in the ledger.
type PieceRef struct {
	id   PieceID
	last bool
}

// RefID refers to the record with the given id.
func RefID(id PieceID) PieceRef {
	return PieceRef{id: id}
}

// RefLast refers to the most recently added record.
func RefLast() PieceRef {
	return PieceRef{last: true}
}

// ParsePieceRef accepts a piece id or "-".
func ParsePieceRef(s string) (PieceRef, error) {
	if s == LastRef {
		return RefLast(), nil
	}
	id, err := ParsePieceID(s)
	if err != nil {
		return PieceRef{}, err
	}
	return RefID(id), nil
}

// IsLast reports whether the ref is the "-" shorthand.
func (r PieceRef) IsLast() bool {
	return r.last
}

func (r PieceRef) String() string {
	if r.last {
		return LastRef
	}
	return r.id.String()
}

// IDSource yields candidate piece ids. Tests substitute a deterministic one.
type IDSource func() PieceID

// RandomIDs draws ids uniformly from the full 32-bit space.
func RandomIDs() PieceID {
	return PieceID(rand.Uint32())
}
