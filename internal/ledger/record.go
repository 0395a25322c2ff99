package ledger

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Action is what a machine has to do for a record.
type Action int

const (
	Noop Action = iota
	Execute
	Undo
)

func (a Action) String() string {
	switch a {
	case Execute:
		return "execute"
	case Undo:
		return "undo"
	default:
		return "noop"
	}
}

// UndoState is present on records marked for undo. UndoneOn lists the
// machines that already undid the record.
type UndoState struct {
	undoneOn MachineSet
}

// UndoneOn returns a copy of the machines that undid the record.
func (u *UndoState) UndoneOn() MachineSet {
	return u.undoneOn.Clone()
}

// Record is one ledger entry: a piece plus its per-machine state.
type Record struct {
	id      PieceID
	piece   Piece
	comment string

	doneOn MachineSet

	// nil while the record is active.
	undo *UndoState

	// nil unless the record targets a fixed set of machines.
	oneTime MachineSet
}

// NewRecord creates an active record that is done nowhere yet.
func NewRecord(id PieceID, piece Piece, comment string) (*Record, error) {
	return newRecord(id, piece, norm.NFC.String(comment))
}

func newRecord(id PieceID, piece Piece, comment string) (*Record, error) {
	if err := piece.Validate(); err != nil {
		return nil, err
	}
	return &Record{id: id, piece: piece.clone(), comment: comment}, nil
}

// ID returns the record id.
func (r *Record) ID() PieceID { return r.id }

// Piece returns a copy of the declared action.
func (r *Record) Piece() Piece { return r.piece.clone() }

// Kind is shorthand for Piece().Kind.
func (r *Record) Kind() Kind { return r.piece.Kind }

// Comment returns the comment, empty when none is set.
func (r *Record) Comment() string { return r.comment }

// SetComment replaces the comment; an empty string removes it.
func (r *Record) SetComment(comment string) {
	r.comment = norm.NFC.String(comment)
}

// SetCommandUndo replaces the undo command of a command piece; an empty
// string removes it.
func (r *Record) SetCommandUndo(undo string) error {
	if r.piece.Kind != KindCommand {
		return fmt.Errorf("%w: undo command only applies to command pieces, %s is %s", ErrInvalidPiece, r.id, r.piece.Kind)
	}
	r.piece.Command.Undo = norm.NFC.String(undo)
	return nil
}

// DoneOn returns a copy of the machines that executed the record.
func (r *Record) DoneOn() MachineSet { return r.doneOn.Clone() }

// UndoState returns the undo state, nil while the record is active.
func (r *Record) UndoState() *UndoState { return r.undo }

// MarkedForUndo reports whether the record is marked for undo.
func (r *Record) MarkedForUndo() bool { return r.undo != nil }

// OneTimeTargets returns the one-time target set and whether it is present.
func (r *Record) OneTimeTargets() (MachineSet, bool) {
	return r.oneTime.Clone(), r.oneTime != nil
}

// DoneOnMachine reports whether m executed the record.
func (r *Record) DoneOnMachine(m Machine) bool { return r.doneOn.Contains(m) }

// Todo decides what m has to do for this record.
func (r *Record) Todo(m Machine) Action {
	if !r.doneOn.Contains(m) {
		if r.undo == nil {
			return Execute
		}
		// Marked for undo before m ever ran it; new machines skip it.
		return Noop
	}
	if r.undo == nil || r.undo.undoneOn.Contains(m) {
		return Noop
	}
	return Undo
}

// MarkExecuted records a successful execution on m.
func (r *Record) MarkExecuted(m Machine) {
	r.doneOn = r.doneOn.with(m)
}

// MarkForUndo flags an active record for undo on every machine that ran
// it. Marking twice is an error.
func (r *Record) MarkForUndo() error {
	if r.undo != nil {
		return fmt.Errorf("piece %s is already marked for undo", r.id)
	}
	r.undo = &UndoState{undoneOn: MachineSet{}}
	return nil
}

// MarkUndone records a successful undo on m.
func (r *Record) MarkUndone(m Machine) error {
	if r.undo == nil {
		return fmt.Errorf("%w: piece %s undone on %s while not marked for undo", ErrInvariantViolation, r.id, m)
	}
	if !r.doneOn.Contains(m) {
		return fmt.Errorf("%w: piece %s undone on %s which never executed it", ErrInvariantViolation, r.id, m)
	}
	r.undo.undoneOn = r.undo.undoneOn.with(m)
	return nil
}

// Unused reports whether the record can be deleted without any known
// machine still owing work on it.
func (r *Record) Unused() bool {
	if r.undo != nil {
		return r.doneOn.Equal(r.undo.undoneOn)
	}
	if r.oneTime != nil {
		return r.doneOn.Equal(r.oneTime)
	}
	return false
}

// restoreRecord rebuilds a record from decoded state, enforcing the
// invariants that the mutators guarantee. Text is kept as stored.
func restoreRecord(id PieceID, piece Piece, comment string, doneOn MachineSet, undoneOn *MachineSet, oneTime *MachineSet) (*Record, error) {
	r, err := newRecord(id, piece, comment)
	if err != nil {
		return nil, fmt.Errorf("piece %s: %w", id, err)
	}
	r.doneOn = doneOn.dedupe()
	if undoneOn != nil {
		undone := undoneOn.dedupe()
		if !undone.SubsetOf(r.doneOn) {
			return nil, fmt.Errorf("%w: piece %s has undone_on machines missing from done_on", ErrInvariantViolation, id)
		}
		if undone == nil {
			undone = MachineSet{}
		}
		r.undo = &UndoState{undoneOn: undone}
	}
	if oneTime != nil {
		targets := oneTime.dedupe()
		if targets == nil {
			targets = MachineSet{}
		}
		r.oneTime = targets
	}
	return r, nil
}
