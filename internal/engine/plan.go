package engine

import (
	"fmt"

	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/pieces"
)

// Capabilities resolves the capability of a kind. *pieces.Registry
// implements it.
type Capabilities interface {
	Lookup(kind ledger.Kind) (pieces.Capability, error)
}

// Step is one unit of work: a whole bulk group or a single record.
type Step struct {
	Action  ledger.Action
	Kind    ledger.Kind
	Bulk    bool
	Records []*ledger.Record
}

// IDs returns the ids of the step's records.
func (s Step) IDs() []ledger.PieceID {
	ids := make([]ledger.PieceID, len(s.Records))
	for i, r := range s.Records {
		ids[i] = r.ID()
	}
	return ids
}

// Worklists splits records into what m still has to execute and undo.
// Input order is preserved and records with nothing to do are dropped.
func Worklists(records []*ledger.Record, m ledger.Machine) (execute, undo []*ledger.Record) {
	for _, r := range records {
		switch r.Todo(m) {
		case ledger.Execute:
			execute = append(execute, r)
		case ledger.Undo:
			undo = append(undo, r)
		}
	}
	return execute, undo
}

// Partition separates a worklist into one group per bulk kind (in
// ledger.Kinds order) and the remaining records (in input order).
func Partition(caps Capabilities, records []*ledger.Record) (groups []Step, rest []*ledger.Record, err error) {
	byKind := make(map[ledger.Kind][]*ledger.Record)
	for _, r := range records {
		c, err := caps.Lookup(r.Kind())
		if err != nil {
			return nil, nil, fmt.Errorf("partition %s: %w", r.ID(), err)
		}
		switch c.(type) {
		case pieces.Bulk:
			byKind[r.Kind()] = append(byKind[r.Kind()], r)
		case pieces.Single:
			rest = append(rest, r)
		default:
			return nil, nil, fmt.Errorf("partition %s: capability for %s is neither bulk nor single", r.ID(), r.Kind())
		}
	}
	for _, k := range ledger.Kinds {
		if members := byKind[k]; len(members) > 0 {
			groups = append(groups, Step{Kind: k, Bulk: true, Records: members})
		}
	}
	return groups, rest, nil
}

// Schedule builds the ordered steps m has to run for records.
func Schedule(caps Capabilities, records []*ledger.Record, m ledger.Machine) ([]Step, error) {
	execute, undo := Worklists(records, m)

	var steps []Step
	for _, phase := range []struct {
		action  ledger.Action
		records []*ledger.Record
	}{
		{ledger.Execute, execute},
		{ledger.Undo, undo},
	} {
		groups, rest, err := Partition(caps, phase.records)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			g.Action = phase.action
			steps = append(steps, g)
		}
		for _, r := range rest {
			steps = append(steps, Step{Action: phase.action, Kind: r.Kind(), Records: []*ledger.Record{r}})
		}
	}
	return steps, nil
}
