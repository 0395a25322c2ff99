package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/GideonBear/falconf/internal/app"
)

// listStyle colors the parts of a list line.
type listStyle struct {
	id      *color.Color
	comment *color.Color
	unused  *color.Color
	undone  *color.Color
}

func newListStyle(colored bool) listStyle {
	s := listStyle{
		id:      color.New(color.FgYellow),
		comment: color.New(color.FgHiBlack),
		unused:  color.New(color.FgRed),
		undone:  color.New(color.CrossedOut),
	}
	for _, c := range []*color.Color{s.id, s.comment, s.unused, s.undone} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// line renders one record as
//
//	[0badf00d] <piece>[ // comment][ (unused)]
//
// A record marked for undo has its piece and comment struck through.
func (s listStyle) line(it app.Item) string {
	var b strings.Builder
	b.WriteString(s.id.Sprintf("[%s]", it.Record.ID()))
	b.WriteByte(' ')

	body := it.Record.Piece().String()
	if c := it.Record.Comment(); c != "" {
		body += " " + s.comment.Sprint("// "+c)
	}
	if it.Record.MarkedForUndo() {
		body = s.undone.Sprint(body)
	}
	b.WriteString(body)

	if it.Unused {
		b.WriteByte(' ')
		b.WriteString(s.unused.Sprint("(unused)"))
	}
	return b.String()
}

func renderList(w io.Writer, items []app.Item, colored bool) error {
	s := newListStyle(colored)
	for _, it := range items {
		if _, err := fmt.Fprintln(w, s.line(it)); err != nil {
			return err
		}
	}
	return nil
}

// listEntry is the JSON shape of one record.
type listEntry struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Piece         string `json:"piece"`
	Comment       string `json:"comment,omitempty"`
	Hash          string `json:"hash"`
	DoneOn        int    `json:"done_on"`
	MarkedForUndo bool   `json:"marked_for_undo"`
	Unused        bool   `json:"unused"`
	DoneHere      bool   `json:"done_here"`
	Todo          string `json:"todo"`
}

func listEntries(items []app.Item) []listEntry {
	out := make([]listEntry, len(items))
	for i, it := range items {
		out[i] = listEntry{
			ID:            it.Record.ID().String(),
			Kind:          string(it.Record.Kind()),
			Piece:         it.Record.Piece().String(),
			Comment:       it.Record.Comment(),
			Hash:          it.Hash,
			DoneOn:        len(it.Record.DoneOn()),
			MarkedForUndo: it.Record.MarkedForUndo(),
			Unused:        it.Unused,
			DoneHere:      it.DoneHere,
			Todo:          it.Todo.String(),
		}
	}
	return out
}
