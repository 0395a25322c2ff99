package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Machine identifies one installation. It is generated once at init and
// never changes afterwards.
type Machine uuid.UUID

// NewMachine returns a fresh random machine id.
func NewMachine() Machine {
	return Machine(uuid.New())
}

// ParseMachine parses the canonical UUID form.
func ParseMachine(s string) (Machine, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return Machine{}, fmt.Errorf("parse machine id %q: %w", s, err)
	}
	return Machine(id), nil
}

func (m Machine) String() string {
	return uuid.UUID(m).String()
}

// IsZero reports whether m is the zero id.
func (m Machine) IsZero() bool {
	return m == Machine{}
}

// MarshalText implements encoding.TextMarshaler.
func (m Machine) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Machine) UnmarshalText(text []byte) error {
	parsed, err := ParseMachine(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MachineData describes a machine for humans reading the ledger.
type MachineData struct {
	Hostname string
}

// NewMachineData builds MachineData with a normalized hostname.
func NewMachineData(hostname string) MachineData {
	return MachineData{Hostname: norm.NFC.String(strings.TrimSpace(hostname))}
}

// MachineSet is an append-only list of machines. Order is kept for stable
// serialization; comparisons treat it as a set.
type MachineSet []Machine

// Contains reports whether m is in the set.
func (s MachineSet) Contains(m Machine) bool {
	for _, x := range s {
		if x == m {
			return true
		}
	}
	return false
}

// with returns s with m appended unless it is already present.
func (s MachineSet) with(m Machine) MachineSet {
	if s.Contains(m) {
		return s
	}
	return append(s, m)
}

// Equal reports set equality, ignoring order and duplicates.
func (s MachineSet) Equal(other MachineSet) bool {
	a := s.index()
	b := other.index()
	if len(a) != len(b) {
		return false
	}
	for m := range a {
		if _, ok := b[m]; !ok {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every machine in s is also in other.
func (s MachineSet) SubsetOf(other MachineSet) bool {
	b := other.index()
	for _, m := range s {
		if _, ok := b[m]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares no backing array with s.
func (s MachineSet) Clone() MachineSet {
	if s == nil {
		return nil
	}
	out := make(MachineSet, len(s))
	copy(out, s)
	return out
}

// Strings returns the machines in their text form, in set order.
func (s MachineSet) Strings() []string {
	out := make([]string, len(s))
	for i, m := range s {
		out[i] = m.String()
	}
	return out
}

func (s MachineSet) index() map[Machine]struct{} {
	idx := make(map[Machine]struct{}, len(s))
	for _, m := range s {
		idx[m] = struct{}{}
	}
	return idx
}

// dedupe drops repeated machines, keeping first occurrences.
func (s MachineSet) dedupe() MachineSet {
	var out MachineSet
	for _, m := range s {
		out = out.with(m)
	}
	return out
}
