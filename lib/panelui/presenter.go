// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/modularui/client"
)

// presentMsg replaces the displayed panel.
type presentMsg struct {
	Panel Panel
}

// refreshMsg carries one changed widget of a session.
type refreshMsg struct {
	Session int32
	Row     Row
}

// dismissMsg removes the panel of a session.
type dismissMsg struct {
	Session int32
	Reason  string
}

// Presenter is a client.Presenter that forwards snapshots to a
// bubbletea program. *tea.Program.Send satisfies send.
type Presenter struct {
	send func(tea.Msg)
}

var _ client.Presenter = (*Presenter)(nil)

// NewPresenter returns a Presenter delivering messages through send.
func NewPresenter(send func(tea.Msg)) *Presenter {
	return &Presenter{send: send}
}

func (p *Presenter) Present(session *client.LocalSession) {
	p.send(presentMsg{Panel: Snapshot(session)})
}

func (p *Presenter) Refresh(session *client.LocalSession, widgetID int) {
	w, ok := session.Template().Widget(widgetID)
	if !ok {
		return
	}
	p.send(refreshMsg{Session: session.ID(), Row: rowFor(widgetID, w)})
}

func (p *Presenter) Dismiss(sessionID int32, reason string) {
	p.send(dismissMsg{Session: sessionID, Reason: reason})
}
