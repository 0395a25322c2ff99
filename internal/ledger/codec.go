package ledger

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FormatVersion is the ledger file format written by Encode.
const FormatVersion = 1

type wireLedger struct {
	Version  int                    `yaml:"version"`
	Machines map[string]wireMachine `yaml:"machines"`
	Pieces   []wireRecord           `yaml:"pieces"`
}

type wireMachine struct {
	Hostname string `yaml:"hostname"`
}

type wireRecord struct {
	ID       wireID       `yaml:"id"`
	Apt      *wireApt     `yaml:"apt,omitempty"`
	Command  *wireCommand `yaml:"command,omitempty"`
	File     *wireFile    `yaml:"file,omitempty"`
	Manual   *wireManual  `yaml:"manual,omitempty"`
	Comment  string       `yaml:"comment,omitempty"`
	DoneOn   []string     `yaml:"done_on"`
	UndoneOn *[]string    `yaml:"undone_on,omitempty"`
	OneTime  *[]string    `yaml:"one_time_todo_on,omitempty"`
}

// wireID is always written quoted so that ids made only of digits stay
// strings for every YAML reader.
type wireID string

func (id wireID) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(id), Style: yaml.DoubleQuotedStyle}, nil
}

type wireApt struct {
	Package string `yaml:"package"`
}

type wireCommand struct {
	Run  string `yaml:"run"`
	Undo string `yaml:"undo,omitempty"`
}

type wireFile struct {
	Location                string  `yaml:"location"`
	ExpectedPreviousContent *string `yaml:"expected_previous_content,omitempty"`
}

type wireManual struct {
	Message string `yaml:"message"`
}

// Encode serializes the ledger. The output is deterministic: records keep
// their order and machines are sorted by id.
func Encode(l *Ledger) ([]byte, error) {
	w := wireLedger{
		Version:  FormatVersion,
		Machines: make(map[string]wireMachine, len(l.machines)),
		Pieces:   make([]wireRecord, 0, len(l.records)),
	}
	for m, d := range l.machines {
		w.Machines[m.String()] = wireMachine{Hostname: d.Hostname}
	}
	for _, r := range l.records {
		w.Pieces = append(w.Pieces, encodeRecord(r))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&w); err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeRecord(r *Record) wireRecord {
	w := wireRecord{
		ID:      wireID(r.id.String()),
		Comment: r.comment,
		DoneOn:  r.doneOn.Strings(),
	}
	switch p := r.piece; p.Kind {
	case KindApt:
		w.Apt = &wireApt{Package: p.Apt.Package}
	case KindCommand:
		w.Command = &wireCommand{Run: p.Command.Run, Undo: p.Command.Undo}
	case KindFile:
		w.File = &wireFile{Location: p.File.Location, ExpectedPreviousContent: p.File.ExpectedPreviousContent}
	case KindManual:
		w.Manual = &wireManual{Message: p.Manual.Message}
	}
	if r.undo != nil {
		undone := r.undo.undoneOn.Strings()
		w.UndoneOn = &undone
	}
	if r.oneTime != nil {
		targets := r.oneTime.Strings()
		w.OneTime = &targets
	}
	return w
}

// Decode parses and validates a ledger file.
func Decode(data []byte) (*Ledger, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var w wireLedger
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}

	l := New()
	for key, wm := range w.Machines {
		m, err := ParseMachine(key)
		if err != nil {
			return nil, fmt.Errorf("decode ledger: %w", err)
		}
		l.machines[m] = MachineData{Hostname: wm.Hostname}
	}
	for i, wr := range w.Pieces {
		r, err := decodeRecord(wr)
		if err != nil {
			return nil, fmt.Errorf("decode ledger: pieces[%d]: %w", i, err)
		}
		if err := l.Append(r); err != nil {
			return nil, fmt.Errorf("decode ledger: pieces[%d]: %w", i, err)
		}
	}
	return l, nil
}

func decodeRecord(w wireRecord) (*Record, error) {
	id, err := ParsePieceID(string(w.ID))
	if err != nil {
		return nil, err
	}

	var piece Piece
	switch {
	case w.Apt != nil && w.Command == nil && w.File == nil && w.Manual == nil:
		piece, err = aptPiece(w.Apt.Package)
	case w.Command != nil && w.Apt == nil && w.File == nil && w.Manual == nil:
		piece, err = commandPiece(w.Command.Run, w.Command.Undo)
	case w.File != nil && w.Apt == nil && w.Command == nil && w.Manual == nil:
		piece, err = NewFile(w.File.Location, w.File.ExpectedPreviousContent)
	case w.Manual != nil && w.Apt == nil && w.Command == nil && w.File == nil:
		piece, err = manualPiece(w.Manual.Message)
	default:
		err = fmt.Errorf("%w: piece %s must have exactly one of apt, command, file, manual", ErrInvalidPiece, w.ID)
	}
	if err != nil {
		return nil, err
	}

	doneOn, err := parseMachines(w.DoneOn)
	if err != nil {
		return nil, err
	}
	var undoneOn, oneTime *MachineSet
	if w.UndoneOn != nil {
		set, err := parseMachines(*w.UndoneOn)
		if err != nil {
			return nil, err
		}
		undoneOn = &set
	}
	if w.OneTime != nil {
		set, err := parseMachines(*w.OneTime)
		if err != nil {
			return nil, err
		}
		oneTime = &set
	}
	return restoreRecord(id, piece, w.Comment, doneOn, undoneOn, oneTime)
}

func parseMachines(raw []string) (MachineSet, error) {
	set := make(MachineSet, 0, len(raw))
	for _, s := range raw {
		m, err := ParseMachine(s)
		if err != nil {
			return nil, err
		}
		set = append(set, m)
	}
	return set, nil
}
