// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"testing"
	"time"

	"github.com/bureau-foundation/modularui/factory"
	"github.com/bureau-foundation/modularui/holder"
	"github.com/bureau-foundation/modularui/lib/testutil"
	"github.com/bureau-foundation/modularui/protocol"
	"github.com/bureau-foundation/modularui/template"
	"github.com/bureau-foundation/modularui/transport"
	"github.com/bureau-foundation/modularui/widget"
)

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
			tmpl := template.New(f.Title)
			tmpl.Add(widget.NewLabel("Furnace"))
			tmpl.Add(widget.NewText(func() string { return f.Status }))
			tmpl.Add(widget.NewProgress("Smelting", func() widget.ProgressValue {
				return widget.ProgressValue{Current: f.Progress, Maximum: 200}
			}))
			tmpl.Add(widget.NewToggle("Running", func() bool { return f.Running }))
			return tmpl, nil
		})
}

type presentation struct {
	kind    string
	session int32
	widget  int
	reason  string
	lines   []string
}

// recordingPresenter captures every presenter call together with the
// widget text at the moment of the call.
type recordingPresenter struct {
	calls chan presentation
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{calls: make(chan presentation, 256)}
}

func (p *recordingPresenter) Present(s *LocalSession) {
	p.calls <- presentation{kind: "present", session: s.ID(), widget: -1, lines: s.Lines()}
}

func (p *recordingPresenter) Refresh(s *LocalSession, widgetID int) {
	p.calls <- presentation{kind: "refresh", session: s.ID(), widget: widgetID, lines: s.Lines()}
}

func (p *recordingPresenter) Dismiss(sessionID int32, reason string) {
	p.calls <- presentation{kind: "dismiss", session: sessionID, widget: -1, reason: reason}
}

func (p *recordingPresenter) next(t *testing.T, want string) presentation {
	t.Helper()
	call := testutil.RequireReceive(t, p.calls, 5*time.Second, "waiting for %s", want)
	if call.kind != want {
		t.Fatalf("presenter call = %s (session %d), want %s", call.kind, call.session, want)
	}
	return call
}

func (p *recordingPresenter) requireIdle(t *testing.T) {
	t.Helper()
	select {
	case call := <-p.calls:
		t.Fatalf("unexpected presenter call %s for session %d", call.kind, call.session)
	default:
	}
}

// scriptedServer drives a Client over a pipe with hand-built messages.
type scriptedServer struct {
	t         *testing.T
	conn      transport.Conn
	factory   factory.Factory
	viewer    factory.Viewer
	presenter *recordingPresenter
}

func startScripted(t *testing.T) *scriptedServer {
	t.Helper()
	registry := factory.NewRegistry()
	furnaceUI := furnaceFactory()
	registry.MustRegister(furnaceUI)
	registry.Freeze()

	serverSide, viewerSide := transport.Pipe()
	viewer := factory.Viewer{ID: "viewer-1", Name: "alice"}
	presenter := newRecordingPresenter()
	c, err := New(Config{Factories: registry, Viewer: viewer, Presenter: presenter, Conn: viewerSide})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, done, 5*time.Second, "waiting for client Run")
	})

	hello, err := protocol.DecodeHello(mustReceive(t, serverSide))
	if err != nil {
		t.Fatalf("DecodeHello: %v", err)
	}
	if hello.Viewer != viewer.ID || hello.Name != viewer.Name {
		t.Fatalf("hello = %+v", hello)
	}
	return &scriptedServer{t: t, conn: serverSide, factory: furnaceUI, viewer: viewer, presenter: presenter}
}

// open builds the Open message the authoritative side would send.
func (s *scriptedServer) open(t *testing.T, session int32, h *furnace) protocol.Open {
	t.Helper()
	holderBytes, err := s.factory.EncodeHolder(h)
	if err != nil {
		t.Fatalf("EncodeHolder: %v", err)
	}
	tmpl, err := s.factory.BuildTemplate(h, s.viewer)
	if err != nil {
		t.Fatalf("BuildTemplate: %v", err)
	}
	var updates []protocol.WidgetUpdate
	tmpl.Each(func(id int, w widget.Widget) {
		w.DetectChanges(widget.EmitterFunc(func(payload []byte) {
			updates = append(updates, protocol.WidgetUpdate{Widget: id, Payload: payload})
		}))
	})
	fingerprint := tmpl.Fingerprint()
	return protocol.Open{
		Factory:     1,
		Holder:      holderBytes,
		Session:     session,
		Fingerprint: fingerprint[:],
		Updates:     updates,
	}
}

// send takes a constructor's results directly:
// server.send(protocol.NewCloseMessage(1, reason)).
func (s *scriptedServer) send(message protocol.Message, err error) {
	s.t.Helper()
	if err != nil {
		s.t.Fatalf("encoding message: %v", err)
	}
	if err := s.conn.Send(message); err != nil {
		s.t.Fatalf("Send: %v", err)
	}
}

func (s *scriptedServer) requireClose(t *testing.T, session int32, reason string) {
	t.Helper()
	closing, err := protocol.DecodeClose(mustReceive(t, s.conn))
	if err != nil {
		t.Fatalf("DecodeClose: %v", err)
	}
	if closing.Session != session || closing.Reason != reason {
		t.Errorf("close = session %d %q, want %d %q", closing.Session, closing.Reason, session, reason)
	}
}

func mustReceive(t *testing.T, conn transport.Conn) protocol.Message {
	t.Helper()
	received := make(chan protocol.Message, 1)
	go func() {
		if message, err := conn.Receive(); err == nil {
			received <- message
		}
	}()
	return testutil.RequireReceive(t, received, 5*time.Second, "waiting for message from client")
}
