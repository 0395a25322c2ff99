package ledger

import (
	"fmt"
	"sort"
)

// Ledger is the ordered collection of records plus per-machine metadata.
// It is not safe for concurrent use.
type Ledger struct {
	records  []*Record
	machines map[Machine]MachineData
	ids      IDSource
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{machines: make(map[Machine]MachineData), ids: RandomIDs}
}

// SetIDSource replaces the id generator used by NewID.
func (l *Ledger) SetIDSource(src IDSource) {
	l.ids = src
}

// Records returns the records in insertion order. The slice is a copy;
// the records are shared.
func (l *Ledger) Records() []*Record {
	out := make([]*Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int { return len(l.records) }

// Get returns the record with the given id.
func (l *Ledger) Get(id PieceID) (*Record, error) {
	for _, r := range l.records {
		if r.id == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Last returns the most recently appended record.
func (l *Ledger) Last() (*Record, error) {
	if len(l.records) == 0 {
		return nil, fmt.Errorf("%w: no pieces present for %q", ErrNotFound, LastRef)
	}
	return l.records[len(l.records)-1], nil
}

// Resolve looks up a record by reference.
func (l *Ledger) Resolve(ref PieceRef) (*Record, error) {
	if ref.last {
		return l.Last()
	}
	return l.Get(ref.id)
}

// ResolveAll resolves every ref or fails on the first unknown one.
// Duplicate references resolve to a single record.
func (l *Ledger) ResolveAll(refs []PieceRef) ([]*Record, error) {
	seen := make(map[PieceID]bool, len(refs))
	out := make([]*Record, 0, len(refs))
	for _, ref := range refs {
		r, err := l.Resolve(ref)
		if err != nil {
			return nil, err
		}
		if seen[r.id] {
			continue
		}
		seen[r.id] = true
		out = append(out, r)
	}
	return out, nil
}

// NewID draws an id that is not used by any record.
func (l *Ledger) NewID() PieceID {
	src := l.ids
	if src == nil {
		src = RandomIDs
	}
	for {
		id := src()
		if _, err := l.Get(id); err != nil {
			return id
		}
	}
}

// Append adds a record at the end.
func (l *Ledger) Append(r *Record) error {
	if _, err := l.Get(r.id); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateID, r.id)
	}
	l.records = append(l.records, r)
	return nil
}

// Remove deletes the record with the given id, keeping the order of the rest.
func (l *Ledger) Remove(id PieceID) error {
	for i, r := range l.records {
		if r.id == id {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// AddMachine registers data for m unless m is already known. It reports
// whether the ledger changed.
func (l *Ledger) AddMachine(m Machine, data MachineData) bool {
	if _, ok := l.machines[m]; ok {
		return false
	}
	l.machines[m] = data
	return true
}

// Machine returns the data registered for m.
func (l *Ledger) Machine(m Machine) (MachineData, bool) {
	d, ok := l.machines[m]
	return d, ok
}

// Machines returns every known machine sorted by id.
func (l *Ledger) Machines() []Machine {
	out := make([]Machine, 0, len(l.machines))
	for m := range l.machines {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Pending returns the records m still has to execute and undo, in
// ledger order.
func (l *Ledger) Pending(m Machine) (execute, undo []*Record) {
	for _, r := range l.records {
		switch r.Todo(m) {
		case Execute:
			execute = append(execute, r)
		case Undo:
			undo = append(undo, r)
		}
	}
	return execute, undo
}
