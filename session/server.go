// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session is the authoritative side of modular UI sync.
//
// A [Server] owns the [Registry] of live sessions, the connections of
// the viewers it serves, and the single authoritative execution
// context. [Server.Run] serializes host ticks (detect and send deltas
// for every session) with domain tasks submitted through
// [Server.Submit] and [Server.Do]; holders and widgets are only read
// or mutated there.
//
// [Server.Open] runs the open handshake: skip automated viewers,
// allocate a session id and close the viewer's previous session under a
// per-viewer lock, build and initialize the template, snapshot every
// widget in accumulate mode, send one Open message carrying the
// snapshot, then register the session and publish [EventOpened].
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/modularui/factory"
	"github.com/bureau-foundation/modularui/lib/clock"
	"github.com/bureau-foundation/modularui/lib/logging"
	"github.com/bureau-foundation/modularui/protocol"
	"github.com/bureau-foundation/modularui/transport"
)

// DefaultTickInterval is the detect/emit period when the config leaves
// it zero.
const DefaultTickInterval = 50 * time.Millisecond

// DefaultTaskQueue is the task buffer when the config leaves it zero.
const DefaultTaskQueue = 256

// DefaultHelloTimeout bounds the wait for a new connection's Hello.
const DefaultHelloTimeout = 10 * time.Second

var (
	// ErrViewerNotConnected is returned by Open for a viewer without a
	// live connection.
	ErrViewerNotConnected = errors.New("viewer not connected")

	// ErrDuplicateViewer rejects a second connection claiming a
	// viewer id that is already connected.
	ErrDuplicateViewer = errors.New("viewer already connected")

	// ErrStopped is returned by Submit and Do once Run has returned.
	ErrStopped = errors.New("server stopped")

	// ErrIDsExhausted is returned by Open when the allocator has no
	// free session id.
	ErrIDsExhausted = errors.New("no free session id")
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Factories resolves factory ids for Open messages. Required.
	Factories *factory.Registry

	// Clock drives the tick loop. Nil means the real clock.
	Clock clock.Clock

	// TickInterval is the detect/emit period.
	TickInterval time.Duration

	// TaskQueue is the capacity of the domain task buffer.
	TaskQueue int

	// IDs allocates session ids. Nil means SequentialIDs.
	IDs IDAllocator

	// HelloTimeout closes connections that stay silent this long
	// after connecting.
	HelloTimeout time.Duration

	// OnConnect is called on the connection goroutine after a viewer's
	// Hello is accepted. Hosts typically open an initial UI from here
	// through Do.
	OnConnect func(viewer factory.Viewer)

	Logger *slog.Logger
}

// Server is the authoritative side of every session in the process.
type Server struct {
	factories    *factory.Registry
	clock        clock.Clock
	tickInterval time.Duration
	helloTimeout time.Duration
	ids          IDAllocator
	onConnect    func(factory.Viewer)
	logger       *slog.Logger
	registry     *Registry

	tasks   chan func()
	stopped chan struct{}
	runOnce sync.Once

	connsMu sync.Mutex
	conns   map[string]transport.Conn
}

// NewServer creates a Server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Factories == nil {
		return nil, errors.New("session server requires a factory registry")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.TaskQueue <= 0 {
		config.TaskQueue = DefaultTaskQueue
	}
	if config.IDs == nil {
		config.IDs = &SequentialIDs{}
	}
	if config.HelloTimeout <= 0 {
		config.HelloTimeout = DefaultHelloTimeout
	}
	return &Server{
		factories:    config.Factories,
		clock:        config.Clock,
		tickInterval: config.TickInterval,
		helloTimeout: config.HelloTimeout,
		ids:          config.IDs,
		onConnect:    config.OnConnect,
		logger:       logging.OrDiscard(config.Logger),
		registry:     NewRegistry(),
		tasks:        make(chan func(), config.TaskQueue),
		stopped:      make(chan struct{}),
		conns:        make(map[string]transport.Conn),
	}, nil
}

// Registry returns the live session registry.
func (s *Server) Registry() *Registry { return s.registry }

// Open opens a UI built by f for holder h on viewer's connection and
// returns the registered session. Automated viewers are skipped
// silently: Open returns (nil, nil) and nothing is sent.
//
// Open reads the holder and builds widgets, so it must run on the
// authoritative context: inside a task passed to Submit or Do, or
// before Run starts.
func (s *Server) Open(f factory.Factory, h any, viewer factory.Viewer) (*Session, error) {
	if viewer.Automated {
		s.logger.Debug("not opening UI for automated viewer", "viewer", viewer.ID, "factory", f.Name())
		return nil, nil
	}
	factoryID, err := s.factories.IDFor(f)
	if err != nil {
		return nil, err
	}
	conn := s.connFor(viewer.ID)
	if conn == nil {
		return nil, fmt.Errorf("open %s for %s: %w", f.Name(), viewer.ID, ErrViewerNotConnected)
	}

	unlock := s.registry.lockViewer(viewer.ID)
	defer unlock()

	if previous := s.registry.ActiveFor(viewer.ID); previous != nil {
		s.closeSession(previous, protocol.CloseReasonReplaced, true)
	}
	id := s.ids.Next(s.registry.InUse)
	if id == 0 {
		return nil, ErrIDsExhausted
	}
	logger := s.logger.With("session_id", id, "viewer", viewer.ID, "factory", f.Name())

	tmpl, err := f.BuildTemplate(h, viewer)
	if err != nil {
		return nil, err
	}
	tmpl.InitWidgets()
	holderBytes, err := f.EncodeHolder(h)
	if err != nil {
		return nil, err
	}

	opened := newSession(id, viewer, f, factoryID, h, tmpl, conn, logger)
	updates, err := opened.snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot session %d: %w", id, err)
	}
	fingerprint := tmpl.Fingerprint()
	message, err := protocol.NewOpenMessage(protocol.Open{
		Factory:     factoryID,
		Holder:      holderBytes,
		Session:     id,
		Fingerprint: fingerprint[:],
		Updates:     updates,
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Send(message); err != nil {
		return nil, fmt.Errorf("send open for session %d: %w", id, err)
	}

	// Disconnect removes the connection before it takes the viewer
	// lock, so a viewer that went away while the snapshot was built
	// shows up here and the session is never registered.
	if s.connFor(viewer.ID) != conn {
		opened.markClosed()
		return nil, fmt.Errorf("open %s for %s: %w", f.Name(), viewer.ID, ErrViewerNotConnected)
	}
	if err := s.registry.register(opened); err != nil {
		return nil, err
	}
	logger.Info("UI opened", "widgets", tmpl.Len(), "initial_updates", len(updates), "fingerprint", fingerprint.Short())
	s.registry.publish(Event{Kind: EventOpened, Session: opened})
	return opened, nil
}

// Tick runs one detect/emit pass over every live session. A session
// whose send fails is closed.
func (s *Server) Tick() {
	for _, live := range s.registry.Sessions() {
		if err := live.DetectAndSend(); err != nil {
			live.logger.Warn("closing session after update failure", "error", err)
			s.closeSession(live, protocol.CloseReasonSendFailed, false)
		}
	}
}

// Run is the authoritative execution context. It runs Tick every
// TickInterval and executes submitted tasks in submission order, never
// concurrently with each other or with a tick. Returns nil when ctx is
// cancelled. Run must be called at most once.
func (s *Server) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.tickInterval)
	defer ticker.Stop()
	defer s.runOnce.Do(func() { close(s.stopped) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick()
		case task := <-s.tasks:
			task()
		}
	}
}

// Submit queues fn to run on the authoritative context. It blocks only
// while the task buffer is full.
func (s *Server) Submit(ctx context.Context, fn func()) error {
	select {
	case <-s.stopped:
		return ErrStopped
	default:
	}
	select {
	case s.tasks <- fn:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the authoritative context and waits for its result.
func (s *Server) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if err := s.Submit(ctx, func() { result <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseSession tears down a session from the authoritative side and
// tells the viewer. Reports false if no such session is live.
func (s *Server) CloseSession(id int32, reason string) bool {
	live, ok := s.registry.Lookup(id)
	if !ok {
		return false
	}
	return s.closeSession(live, reason, true)
}

// Disconnect forgets a viewer's connection and closes their session
// without sending anything. It waits for an Open in progress for the
// same viewer, which then either fails or registers a session that
// Disconnect closes.
func (s *Server) Disconnect(viewerID string) {
	s.connsMu.Lock()
	delete(s.conns, viewerID)
	s.connsMu.Unlock()

	unlock := s.registry.lockViewer(viewerID)
	defer unlock()
	if active := s.registry.ActiveFor(viewerID); active != nil {
		s.closeSession(active, protocol.CloseReasonDisconnected, false)
	}
}

func (s *Server) closeSession(live *Session, reason string, notify bool) bool {
	if _, removed := s.registry.remove(live.id); !removed {
		return false
	}
	live.markClosed()
	if notify {
		message, err := protocol.NewCloseMessage(live.id, reason)
		if err == nil {
			err = live.conn.Send(message)
		}
		if err != nil {
			live.logger.Debug("close message not delivered", "error", err)
		}
	}
	live.logger.Info("UI closed", "reason", reason)
	s.registry.publish(Event{Kind: EventClosed, Session: live, Reason: reason})
	return true
}

// Attach binds conn as the connection UIs for viewerID are sent on.
// ServeConn calls it after the Hello; hosts that run their own
// handshake call it directly and Disconnect when the connection ends.
func (s *Server) Attach(viewerID string, conn transport.Conn) error {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if _, exists := s.conns[viewerID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateViewer, viewerID)
	}
	s.conns[viewerID] = conn
	return nil
}

func (s *Server) connFor(viewerID string) transport.Conn {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return s.conns[viewerID]
}

// ServeConn runs one viewer connection: it reads the Hello, registers
// the connection, calls OnConnect, then handles inbound Close messages
// until the connection ends or ctx is cancelled. On return the
// connection is closed and the viewer's session torn down.
func (s *Server) ServeConn(ctx context.Context, conn transport.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	helloTimer := s.clock.AfterFunc(s.helloTimeout, func() { conn.Close() })
	first, err := conn.Receive()
	if !helloTimer.Stop() && err != nil {
		return fmt.Errorf("no hello within %v: %w", s.helloTimeout, err)
	}
	if err != nil {
		return fmt.Errorf("waiting for hello: %w", err)
	}
	hello, err := protocol.DecodeHello(first)
	if err != nil {
		return err
	}
	if hello.Viewer == "" {
		return errors.New("hello without viewer id")
	}
	viewer := factory.Viewer{ID: hello.Viewer, Name: hello.Name, Automated: hello.Automated}
	logger := s.logger.With("viewer", viewer.ID)

	if err := s.Attach(viewer.ID, conn); err != nil {
		return err
	}
	defer s.Disconnect(viewer.ID)
	// Close before Disconnect so nothing more is queued for a viewer
	// that has gone.
	defer conn.Close()

	logger.Info("viewer connected", "name", viewer.Name, "automated", viewer.Automated)
	if s.onConnect != nil {
		s.onConnect(viewer)
	}

	for {
		message, err := conn.Receive()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, transport.ErrClosed) {
				logger.Info("viewer disconnected")
				return nil
			}
			return fmt.Errorf("viewer %s: %w", viewer.ID, err)
		}
		switch message.Type {
		case protocol.MessageTypeClose:
			closing, err := protocol.DecodeClose(message)
			if err != nil {
				logger.Warn("dropping malformed close", "error", err)
				continue
			}
			live, ok := s.registry.Lookup(closing.Session)
			if !ok || live.viewer.ID != viewer.ID {
				logger.Debug("close for unknown session dropped", "session_id", closing.Session)
				continue
			}
			reason := closing.Reason
			if reason == "" {
				reason = protocol.CloseReasonViewer
			}
			s.closeSession(live, reason, false)
		default:
			logger.Warn("unexpected message from viewer", "type", protocol.TypeName(message.Type))
		}
	}
}
