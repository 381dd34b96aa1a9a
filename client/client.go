// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the observing side of modular UI sync.
//
// A [Client] reads protocol messages from its connection and handles
// each one on a [Queue], the single-threaded presentation context, in
// arrival order. For an Open it decodes the holder, rebuilds the
// template with the same factory the server used, checks the template
// fingerprint, applies every bundled initial delta, and only then
// hands the session to the host [Presenter]. Updates are applied to
// the matching widget one by one.
//
// Failures are scoped to one session. A corrupt holder, an unknown
// factory, or a template that diverges from the server's is logged,
// answered with a Close, and never presented. An Update for a widget
// id the local template lacks is logged and dropped; the session
// continues. Messages for sessions that are no longer active are
// dropped without comment.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/modularui/factory"
	"github.com/bureau-foundation/modularui/holder"
	"github.com/bureau-foundation/modularui/lib/logging"
	"github.com/bureau-foundation/modularui/protocol"
	"github.com/bureau-foundation/modularui/template"
	"github.com/bureau-foundation/modularui/transport"
)

// Config configures a Client.
type Config struct {
	// Factories must hold the same factories, registered in the same
	// order, as the server's registry.
	Factories *factory.Registry

	// Viewer is announced in the Hello and passed to every template
	// build.
	Viewer factory.Viewer

	Presenter Presenter
	Conn      transport.Conn
	Logger    *slog.Logger
}

// Client is one viewer's connection to a server.
type Client struct {
	factories *factory.Registry
	viewer    factory.Viewer
	presenter Presenter
	conn      transport.Conn
	logger    *slog.Logger
	queue     *Queue
	runOnce   sync.Once

	// active is the presented session. Queue goroutine only.
	active *LocalSession
}

// New creates a Client.
func New(config Config) (*Client, error) {
	if config.Factories == nil {
		return nil, errors.New("client requires a factory registry")
	}
	if config.Presenter == nil {
		return nil, errors.New("client requires a presenter")
	}
	if config.Conn == nil {
		return nil, errors.New("client requires a connection")
	}
	if config.Viewer.ID == "" {
		return nil, errors.New("client requires a viewer id")
	}
	return &Client{
		factories: config.Factories,
		viewer:    config.Viewer,
		presenter: config.Presenter,
		conn:      config.Conn,
		logger:    logging.OrDiscard(config.Logger).With("viewer", config.Viewer.ID),
		queue:     NewQueue(),
	}, nil
}

// Queue returns the presentation queue. Hosts may enqueue their own
// UI work on it to keep it ordered with protocol handling.
func (c *Client) Queue() *Queue { return c.queue }

// Run sends the Hello, then receives and handles messages until the
// server hangs up (returns nil) or ctx is cancelled (returns nil). The
// presentation queue runs for the duration of Run. The connection is
// closed on return. Run must be called once.
func (c *Client) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("client already running")
	}

	hello, err := protocol.NewHelloMessage(protocol.Hello{
		Viewer:    c.viewer.ID,
		Name:      c.viewer.Name,
		Automated: c.viewer.Automated,
	})
	if err != nil {
		return err
	}
	if err := c.conn.Send(hello); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()
	defer c.conn.Close()

	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		c.queue.Run(ctx)
	}()

	var result error
	for {
		message, err := c.conn.Receive()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, transport.ErrClosed) {
				result = err
			}
			break
		}
		c.Deliver(message)
	}

	c.queue.Enqueue(func() { c.dismissActive(protocol.CloseReasonDisconnected) })
	c.queue.Close()
	<-queueDone
	return result
}

// Deliver queues one inbound message for handling. Run calls it for
// every received message; hosts feeding messages from their own
// transport call it directly.
func (c *Client) Deliver(message protocol.Message) {
	c.queue.Enqueue(func() { c.handle(message) })
}

// CloseUI closes the presented UI from the viewer side: the server is
// told and the presenter dismisses it.
func (c *Client) CloseUI() {
	c.queue.Enqueue(func() {
		if c.active == nil {
			return
		}
		c.sendClose(c.active.id, protocol.CloseReasonViewer)
		c.dismissActive(protocol.CloseReasonViewer)
	})
}

func (c *Client) handle(message protocol.Message) {
	switch message.Type {
	case protocol.MessageTypeOpen:
		open, err := protocol.DecodeOpen(message)
		if err != nil {
			c.logger.Warn("dropping malformed open", "error", err)
			return
		}
		c.handleOpen(open)
	case protocol.MessageTypeUpdate:
		update, err := protocol.DecodeUpdate(message)
		if err != nil {
			c.logger.Warn("dropping malformed update", "error", err)
			return
		}
		c.handleUpdate(update)
	case protocol.MessageTypeClose:
		closing, err := protocol.DecodeClose(message)
		if err != nil {
			c.logger.Warn("dropping malformed close", "error", err)
			return
		}
		c.handleClose(closing)
	default:
		c.logger.Warn("unexpected message from server", "type", protocol.TypeName(message.Type))
	}
}

func (c *Client) handleOpen(open protocol.Open) {
	logger := c.logger.With("session_id", open.Session)

	f, err := c.factories.FactoryFor(open.Factory)
	if err != nil {
		logger.Error("cannot open UI", "error", err)
		c.sendClose(open.Session, protocol.CloseReasonUnknownFactory)
		return
	}
	logger = logger.With("factory", f.Name())

	decoded, err := f.DecodeHolder(open.Holder)
	if err != nil {
		if errors.Is(err, holder.ErrCorruptSyncData) {
			logger.Error("corrupt sync data, UI not opened", "error", err, "holder_bytes", len(open.Holder))
		} else {
			logger.Error("decoding holder failed, UI not opened", "error", err)
		}
		c.sendClose(open.Session, protocol.CloseReasonCorruptHolder)
		return
	}

	local, err := c.rebuild(f, decoded, open)
	if err != nil {
		logger.Error("template divergence, UI not opened", "error", err)
		c.sendClose(open.Session, protocol.CloseReasonDivergence)
		return
	}

	if c.active != nil {
		c.dismissActive(protocol.CloseReasonReplaced)
	}
	c.active = local
	logger.Debug("presenting UI", "widgets", local.template.Len(), "initial_updates", len(open.Updates))
	c.presenter.Present(local)
}

// rebuild constructs the local session for open and applies its
// initial deltas. Any mismatch with the server's template wraps
// template.ErrDivergence.
func (c *Client) rebuild(f factory.Factory, decoded any, open protocol.Open) (*LocalSession, error) {
	tmpl, err := f.BuildTemplate(decoded, c.viewer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", template.ErrDivergence, err)
	}
	tmpl.InitWidgets()
	if err := tmpl.Verify(open.Fingerprint); err != nil {
		return nil, err
	}
	for i, update := range open.Updates {
		w, ok := tmpl.Widget(update.Widget)
		if !ok {
			return nil, fmt.Errorf("%w: initial update %d targets widget %d, template has %d widgets",
				template.ErrDivergence, i, update.Widget, tmpl.Len())
		}
		if err := w.ApplyDelta(update.Payload); err != nil {
			return nil, fmt.Errorf("%w: initial update %d for widget %d: %v",
				template.ErrDivergence, i, update.Widget, err)
		}
	}
	return &LocalSession{id: open.Session, factory: f, holder: decoded, template: tmpl}, nil
}

func (c *Client) handleUpdate(update protocol.Update) {
	if c.active == nil || c.active.id != update.Session {
		c.logger.Debug("dropping update for inactive session", "session_id", update.Session, "widget", update.Widget)
		return
	}
	w, ok := c.active.template.Widget(update.Widget)
	if !ok {
		c.logger.Warn("dropping update", "session_id", update.Session, "widget", update.Widget,
			"error", template.ErrUnknownWidget)
		return
	}
	if err := w.ApplyDelta(update.Payload); err != nil {
		c.logger.Warn("dropping update", "session_id", update.Session, "widget", update.Widget, "error", err)
		return
	}
	c.presenter.Refresh(c.active, update.Widget)
}

func (c *Client) handleClose(closing protocol.Close) {
	if c.active == nil || c.active.id != closing.Session {
		c.logger.Debug("dropping close for inactive session", "session_id", closing.Session)
		return
	}
	reason := closing.Reason
	if reason == "" {
		reason = protocol.CloseReasonServer
	}
	c.dismissActive(reason)
}

func (c *Client) dismissActive(reason string) {
	if c.active == nil {
		return
	}
	id := c.active.id
	c.active = nil
	c.logger.Debug("UI dismissed", "session_id", id, "reason", reason)
	c.presenter.Dismiss(id, reason)
}

func (c *Client) sendClose(session int32, reason string) {
	message, err := protocol.NewCloseMessage(session, reason)
	if err == nil {
		err = c.conn.Send(message)
	}
	if err != nil {
		c.logger.Debug("close not delivered", "session_id", session, "error", err)
	}
}
