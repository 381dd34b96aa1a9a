// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"github.com/bureau-foundation/modularui/factory"
	"github.com/bureau-foundation/modularui/template"
)

// LocalSession is the observing side's copy of a session: the template
// rebuilt from the decoded holder, with every delta received so far
// applied. It is only touched on the presentation queue.
type LocalSession struct {
	id       int32
	factory  factory.Factory
	holder   any
	template *template.Template
}

// ID returns the session id assigned by the server.
func (s *LocalSession) ID() int32 { return s.id }

// Factory returns the factory that rebuilt the template.
func (s *LocalSession) Factory() factory.Factory { return s.factory }

// Holder returns the decoded holder.
func (s *LocalSession) Holder() any { return s.holder }

// Template returns the local widget tree.
func (s *LocalSession) Template() *template.Template { return s.template }

// Lines renders every widget with String, in id order.
func (s *LocalSession) Lines() []string {
	lines := make([]string, 0, s.template.Len())
	for _, id := range s.template.IDs() {
		w, _ := s.template.Widget(id)
		lines = append(lines, w.String())
	}
	return lines
}

// Presenter is the host's display mechanism. Every method is called on
// the presentation queue.
type Presenter interface {
	// Present shows a newly opened UI. All initial deltas have been
	// applied before Present is called.
	Present(session *LocalSession)

	// Refresh is called after an Update changed one widget of the
	// presented session.
	Refresh(session *LocalSession, widgetID int)

	// Dismiss removes a UI that was presented. It is not called for
	// sessions that never reached Present.
	Dismiss(sessionID int32, reason string)
}
