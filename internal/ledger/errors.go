package ledger

import "errors"

var (
	// ErrInvariantViolation reports state that a well-formed ledger can never
	// hold, such as a machine in undone_on that is missing from done_on.
	ErrInvariantViolation = errors.New("ledger: invariant violation")

	// ErrNotFound reports a piece reference that does not resolve.
	ErrNotFound = errors.New("ledger: piece not found")

	// ErrDuplicateID reports an Append of an id that is already present.
	ErrDuplicateID = errors.New("ledger: duplicate piece id")

	// ErrMalformed reports a ledger file that does not match the schema.
	ErrMalformed = errors.New("ledger: malformed ledger file")

	// ErrInvalidPiece reports a piece that cannot be built from its input.
	ErrInvalidPiece = errors.New("ledger: invalid piece")
)
