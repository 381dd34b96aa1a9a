// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/bureau-foundation/modularui/factory"
	"github.com/bureau-foundation/modularui/holder"
	"github.com/bureau-foundation/modularui/protocol"
	"github.com/bureau-foundation/modularui/template"
	"github.com/bureau-foundation/modularui/widget"
)

// furnace is the test holder. Widgets read it through closures, so
// mutating it changes what the next tick sends.
type furnace struct {
	Title    string `cbor:"title"`
	Status   string `cbor:"status"`
	Progress int64  `cbor:"progress"`
	Running  bool   `cbor:"running"`
}

// furnaceFactory builds: 0 label, 1 status text, 2 progress, 3 toggle.
func furnaceFactory() factory.Factory {
	return factory.New("furnace", holder.CBORCodec[*furnace]{},
		func(f *furnace, viewer factory.Viewer) (*template.Template, error) {
			return furnaceTemplate(f), nil
		})
}

func furnaceTemplate(f *furnace) *template.Template {
	tmpl := template.New(f.Title)
	tmpl.Add(widget.NewLabel("Furnace"))
	tmpl.Add(widget.NewText(func() string { return f.Status }))
	tmpl.Add(widget.NewProgress("Smelting", func() widget.ProgressValue {
		return widget.ProgressValue{Current: f.Progress, Maximum: 200}
	}))
	tmpl.Add(widget.NewToggle("Running", func() bool { return f.Running }))
	return tmpl
}

// recordingConn records every sent message.
type recordingConn struct {
	mu       sync.Mutex
	messages []protocol.Message
	fail     bool
	sent     chan protocol.Message

	closeOnce sync.Once
	closed    chan struct{}
}

func newRecordingConn() *recordingConn {
	return &recordingConn{sent: make(chan protocol.Message, 256), closed: make(chan struct{})}
}

func (c *recordingConn) Send(message protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection reset by peer")
	}
	c.messages = append(c.messages, message)
	c.sent <- message
	return nil
}

func (c *recordingConn) Receive() (protocol.Message, error) {
	<-c.closed
	return protocol.Message{}, errors.New("closed")
}

func (c *recordingConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *recordingConn) setFail(fail bool) {
	c.mu.Lock()
	c.fail = fail
	c.mu.Unlock()
}

func (c *recordingConn) types() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]byte, len(c.messages))
	for i, message := range c.messages {
		types[i] = message.Type
	}
	return types
}

func (c *recordingConn) drain() []protocol.Message {
	var drained []protocol.Message
	for {
		select {
		case message := <-c.sent:
			drained = append(drained, message)
		default:
			return drained
		}
	}
}

type fixture struct {
	server   *Server
	factory  factory.Factory
	holder   *furnace
	viewer   factory.Viewer
	conn     *recordingConn
	events   chan Event
	registry *factory.Registry
}

func newFixture(t *testing.T, configure func(*ServerConfig)) *fixture {
	t.Helper()
	registry := factory.NewRegistry()
	furnaceUI := furnaceFactory()
	registry.MustRegister(furnaceUI)
	registry.Freeze()

	config := ServerConfig{Factories: registry}
	if configure != nil {
		configure(&config)
	}
	server, err := NewServer(config)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	f := &fixture{
		server:   server,
		factory:  furnaceUI,
		holder:   &furnace{Title: "Electric Furnace", Status: "idle"},
		viewer:   factory.Viewer{ID: "viewer-1", Name: "alice"},
		conn:     newRecordingConn(),
		events:   make(chan Event, 64),
		registry: registry,
	}
	if err := server.Attach(f.viewer.ID, f.conn); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	server.Registry().Subscribe(func(event Event) { f.events <- event })
	return f
}

func (f *fixture) open(t *testing.T) *Session {
	t.Helper()
	opened, err := f.server.Open(f.factory, f.holder, f.viewer)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return opened
}

func decodeOpen(t *testing.T, message protocol.Message) protocol.Open {
	t.Helper()
	open, err := protocol.DecodeOpen(message)
	if err != nil {
		t.Fatalf("DecodeOpen: %v", err)
	}
	return open
}

func decodeUpdate(t *testing.T, message protocol.Message) protocol.Update {
	t.Helper()
	update, err := protocol.DecodeUpdate(message)
	if err != nil {
		t.Fatalf("DecodeUpdate: %v", err)
	}
	return update
}
