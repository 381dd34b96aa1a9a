// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import (
	"github.com/bureau-foundation/modularui/client"
	"github.com/bureau-foundation/modularui/widget"
)

// Row is the rendered state of one widget.
type Row struct {
	Widget int
	Kind   string
	Text   string

	// Bar is set for progress widgets; Label and Fraction then
	// describe the bar and Text holds the "label: c/m" form.
	Bar      bool
	Label    string
	Fraction float64
}

// Panel is a snapshot of a presented session, safe to hand to another
// goroutine.
type Panel struct {
	Session int32
	Title   string
	Rows    []Row
}

// Snapshot copies the render state of every widget of session. It must
// run on the presentation queue.
func Snapshot(session *client.LocalSession) Panel {
	tmpl := session.Template()
	panel := Panel{
		Session: session.ID(),
		Title:   tmpl.Title(),
		Rows:    make([]Row, 0, tmpl.Len()),
	}
	tmpl.Each(func(id int, w widget.Widget) {
		panel.Rows = append(panel.Rows, rowFor(id, w))
	})
	return panel
}

func rowFor(id int, w widget.Widget) Row {
	row := Row{Widget: id, Kind: w.Kind(), Text: w.String()}
	if progress, ok := w.(*widget.Progress); ok {
		row.Bar = true
		row.Label = progress.Label()
		row.Fraction = progress.Value().Fraction()
	}
	return row
}

// replace swaps in row by widget id. Rows are stored in id order, and
// ids are dense, so the index is usually the id itself.
func (p *Panel) replace(row Row) bool {
	if row.Widget >= 0 && row.Widget < len(p.Rows) && p.Rows[row.Widget].Widget == row.Widget {
		p.Rows[row.Widget] = row
		return true
	}
	for index := range p.Rows {
		if p.Rows[index].Widget == row.Widget {
			p.Rows[index] = row
			return true
		}
	}
	return false
}
