// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"

	"github.com/bureau-foundation/modularui/protocol"
)

// ErrClosed is returned by Send and Receive after Close on the local
// side, and by Send once the peer has gone away.
var ErrClosed = errors.New("connection closed")

// ErrSendQueueFull is returned by Send when the peer has fallen so far
// behind that the outbound queue is full. The connection is closed.
var ErrSendQueueFull = errors.New("send queue full")

// Conn is a bidirectional, ordered message connection.
type Conn interface {
	// Send writes one message. Safe for concurrent use; concurrent
	// sends are serialized and each message is written whole. Send
	// must not block on a slow peer.
	Send(message protocol.Message) error

	// Receive blocks until the next message arrives. It returns an
	// error wrapping io.EOF when the peer closed the connection
	// cleanly. Receive must not be called concurrently.
	Receive() (protocol.Message, error)

	// Close releases the connection and unblocks Receive. Safe to
	// call more than once.
	Close() error
}

// Handler serves one accepted connection. The connection is closed
// after the handler returns. ctx is cancelled when the listener shuts
// down.
type Handler func(ctx context.Context, conn Conn)

// Listener accepts inbound connections.
type Listener interface {
	// Serve accepts connections and dispatches each to handler on a
	// new goroutine. Blocks until ctx is cancelled or Close is called,
	// then closes every open connection and waits for handlers to
	// return. Returns nil on clean shutdown.
	Serve(ctx context.Context, handler Handler) error

	// Address returns the listening address in "host:port" form.
	Address() string

	// Close stops accepting connections.
	Close() error
}

// Dialer opens outbound connections.
type Dialer interface {
	DialContext(ctx context.Context, address string) (Conn, error)
}
