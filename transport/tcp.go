// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/modularui/protocol"
)

var (
	_ Listener = (*TCPListener)(nil)
	_ Dialer   = (*TCPDialer)(nil)
)

// TCPListener accepts viewer connections over TCP.
type TCPListener struct {
	listener net.Listener
	options  protocol.FrameOptions

	mu    sync.Mutex
	conns map[*StreamConn]struct{}
}

// NewTCPListener listens on address (e.g. ":7410" or
// "127.0.0.1:0" for a random port). Every accepted connection frames
// with options.
func NewTCPListener(address string, options protocol.FrameOptions) (*TCPListener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &TCPListener{
		listener: listener,
		options:  options,
		conns:    make(map[*StreamConn]struct{}),
	}, nil
}

// Serve accepts connections until ctx is cancelled or Close is called.
func (l *TCPListener) Serve(ctx context.Context, handler Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { l.listener.Close() })
	defer stop()

	var handlers sync.WaitGroup
	defer func() {
		cancel()
		l.closeConns()
		handlers.Wait()
	}()

	for {
		netConn, err := l.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		conn := NewStreamConn(netConn, l.options)
		l.track(conn)
		handlers.Add(1)
		go func() {
			defer handlers.Done()
			defer l.untrack(conn)
			defer conn.Close()
			handler(ctx, conn)
		}()
	}
}

func (l *TCPListener) track(conn *StreamConn) {
	l.mu.Lock()
	l.conns[conn] = struct{}{}
	l.mu.Unlock()
}

func (l *TCPListener) untrack(conn *StreamConn) {
	l.mu.Lock()
	delete(l.conns, conn)
	l.mu.Unlock()
}

// closeConns closes every tracked connection in parallel, since each
// Close may linger on a peer that is not reading.
func (l *TCPListener) closeConns() {
	l.mu.Lock()
	conns := make([]*StreamConn, 0, len(l.conns))
	for conn := range l.conns {
		conns = append(conns, conn)
	}
	l.mu.Unlock()

	var wait sync.WaitGroup
	for _, conn := range conns {
		wait.Go(func() { conn.Close() })
	}
	wait.Wait()
}

// Address returns the TCP address in "host:port" format.
func (l *TCPListener) Address() string {
	return l.listener.Addr().String()
}

// Close stops accepting connections. Serve then closes open
// connections and returns.
func (l *TCPListener) Close() error {
	return l.listener.Close()
}

// TCPDialer opens viewer connections over TCP.
type TCPDialer struct {
	// Timeout bounds connection establishment. Zero means only the
	// context deadline applies.
	Timeout time.Duration

	// Options configures framing on dialed connections.
	Options protocol.FrameOptions
}

// DialContext connects to address (host:port).
func (d *TCPDialer) DialContext(ctx context.Context, address string) (Conn, error) {
	netConn, err := (&net.Dialer{Timeout: d.Timeout}).DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return NewStreamConn(netConn, d.Options), nil
}
