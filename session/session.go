// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/modularui/factory"
	"github.com/bureau-foundation/modularui/protocol"
	"github.com/bureau-foundation/modularui/template"
	"github.com/bureau-foundation/modularui/transport"
	"github.com/bureau-foundation/modularui/widget"
)

// Session binds a viewer, a session id and the authoritative template
// built for them. Widgets are only touched from the authoritative
// execution context (see Server.Run).
type Session struct {
	id        int32
	viewer    factory.Viewer
	factory   factory.Factory
	factoryID uint16
	holder    any
	template  *template.Template
	conn      transport.Conn
	logger    *slog.Logger

	emitters []widget.Emitter

	// mu is held for a whole detect/emit pass and by markClosed, so
	// once markClosed returns the session sends nothing more.
	mu     sync.Mutex
	closed bool

	// accumulating diverts deltas into accumulated during the Open
	// snapshot.
	accumulating bool
	accumulated  []protocol.WidgetUpdate

	// sendErr records the first failed send of a pass. Emitter has no
	// error return.
	sendErr error
}

func newSession(id int32, viewer factory.Viewer, f factory.Factory, factoryID uint16, holder any,
	tmpl *template.Template, conn transport.Conn, logger *slog.Logger) *Session {
	s := &Session{
		id:        id,
		viewer:    viewer,
		factory:   f,
		factoryID: factoryID,
		holder:    holder,
		template:  tmpl,
		conn:      conn,
		logger:    logger,
	}
	s.emitters = make([]widget.Emitter, tmpl.Len())
	for widgetID := range s.emitters {
		s.emitters[widgetID] = widgetEmitter{session: s, widgetID: widgetID}
	}
	return s
}

// ID returns the session (window) id.
func (s *Session) ID() int32 { return s.id }

// Viewer returns the viewer the session was opened for.
func (s *Session) Viewer() factory.Viewer { return s.viewer }

// Factory returns the factory that built the template.
func (s *Session) Factory() factory.Factory { return s.factory }

// Holder returns the holder the UI is bound to.
func (s *Session) Holder() any { return s.holder }

// Template returns the authoritative widget tree.
func (s *Session) Template() *template.Template { return s.template }

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// markClosed stops all further emission. It reports false if the
// session was already closed.
func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

// snapshot runs DetectChanges on every widget in accumulate mode and
// returns the buffered deltas in emission order.
func (s *Session) snapshot() ([]protocol.WidgetUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accumulating = true
	defer func() {
		s.accumulating = false
		s.accumulated = nil
	}()
	if err := s.detectLocked(); err != nil {
		return nil, err
	}
	return s.accumulated, nil
}

// DetectAndSend runs DetectChanges over every widget in id order and
// sends each delta as its own Update message. A closed session sends
// nothing. The returned error is the first encode or send failure;
// widgets after it in the pass are not visited.
func (s *Session) DetectAndSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.detectLocked()
}

func (s *Session) detectLocked() error {
	s.sendErr = nil
	for widgetID, emitter := range s.emitters {
		w, _ := s.template.Widget(widgetID)
		if err := w.DetectChanges(emitter); err != nil {
			return fmt.Errorf("session %d widget %d: %w", s.id, widgetID, err)
		}
		if s.sendErr != nil {
			return s.sendErr
		}
	}
	return nil
}

// emit is called with s.mu held, from inside DetectChanges.
func (s *Session) emit(widgetID int, payload []byte) {
	if s.sendErr != nil {
		return
	}
	if s.accumulating {
		s.accumulated = append(s.accumulated, protocol.WidgetUpdate{Widget: widgetID, Payload: payload})
		return
	}
	message, err := protocol.NewUpdateMessage(protocol.Update{Session: s.id, Widget: widgetID, Payload: payload})
	if err == nil {
		err = s.conn.Send(message)
	}
	if err != nil {
		s.sendErr = fmt.Errorf("session %d: sending update for widget %d: %w", s.id, widgetID, err)
	}
}

type widgetEmitter struct {
	session  *Session
	widgetID int
}

func (e widgetEmitter) EmitDelta(payload []byte) { e.session.emit(e.widgetID, payload) }
