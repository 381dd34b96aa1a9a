// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/bureau-foundation/modularui/lib/testutil"
	"github.com/bureau-foundation/modularui/protocol"
)

func TestStreamConnOverNetPipe(t *testing.T) {
	t.Parallel()
	left, right := net.Pipe()
	server := NewStreamConn(left, protocol.FrameOptions{})
	viewer := NewStreamConn(right, protocol.FrameOptions{})
	defer server.Close()
	defer viewer.Close()

	received := make(chan protocol.Message, 2)
	go func() {
		for {
			message, err := viewer.Receive()
			if err != nil {
				close(received)
				return
			}
			received <- message
		}
	}()

	// Sends return once the frame is queued; the writer goroutine
	// delivers them in order.
	server.Send(protocol.Message{Type: protocol.MessageTypeOpen, Payload: []byte("holder")})
	server.Send(protocol.Message{Type: protocol.MessageTypeUpdate, Payload: []byte{7}})

	first := testutil.RequireReceive(t, received, 5*time.Second, "waiting for open")
	second := testutil.RequireReceive(t, received, 5*time.Second, "waiting for update")
	if first.Type != protocol.MessageTypeOpen || string(first.Payload) != "holder" {
		t.Errorf("first = %s %q", protocol.TypeName(first.Type), first.Payload)
	}
	if second.Type != protocol.MessageTypeUpdate || second.Payload[0] != 7 {
		t.Errorf("second = %s %v", protocol.TypeName(second.Type), second.Payload)
	}
}

func TestStreamConnPeerCloseIsEOF(t *testing.T) {
	t.Parallel()
	left, right := net.Pipe()
	server := NewStreamConn(left, protocol.FrameOptions{})
	viewer := NewStreamConn(right, protocol.FrameOptions{})
	defer viewer.Close()

	server.Close()
	if _, err := viewer.Receive(); !errors.Is(err, io.EOF) {
		t.Errorf("Receive after peer close = %v, want io.EOF", err)
	}
}

func TestStreamConnLocalClose(t *testing.T) {
	t.Parallel()
	left, right := net.Pipe()
	server := NewStreamConn(left, protocol.FrameOptions{})
	defer right.Close()

	done := make(chan error, 1)
	go func() {
		_, err := server.Receive()
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	if err := server.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Receive"); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive = %v, want ErrClosed", err)
	}
	if err := server.Send(protocol.Message{Type: protocol.MessageTypeClose}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	server.Close()
}

func TestStreamConnStalledPeerDoesNotBlockSend(t *testing.T) {
	t.Parallel()
	left, right := net.Pipe()
	defer right.Close()
	// Nothing ever reads from right, so every write on left blocks.
	server := NewStreamConnWithQueue(left, protocol.FrameOptions{}, 4)
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		for range 64 {
			if err := server.Send(protocol.Message{Type: protocol.MessageTypeUpdate, Payload: []byte{1, 2, 3}}); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	err := testutil.RequireReceive(t, done, 5*time.Second, "Send blocked on a peer that never reads")
	if !errors.Is(err, ErrSendQueueFull) {
		t.Fatalf("Send = %v, want ErrSendQueueFull", err)
	}
	if err := server.Send(protocol.Message{Type: protocol.MessageTypeClose}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after overflow = %v, want ErrClosed", err)
	}
	if err := server.Send(protocol.Message{Type: protocol.MessageTypeClose}); !errors.Is(err, ErrSendQueueFull) {
		t.Errorf("Send after overflow = %v, want it to report the overflow", err)
	}

	// The stream is closed, so the peer sees end of stream once it
	// drains whatever the writer managed to hand over.
	viewer := NewStreamConn(right, protocol.FrameOptions{})
	defer viewer.Close()
	received := make(chan error, 1)
	go func() {
		for {
			if _, err := viewer.Receive(); err != nil {
				received <- err
				return
			}
		}
	}()
	if err := testutil.RequireReceive(t, received, 5*time.Second, "waiting for peer to see the close"); !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("peer Receive = %v, want end of stream", err)
	}
}

func TestStreamConnCloseDeliversQueuedFrames(t *testing.T) {
	t.Parallel()
	left, right := net.Pipe()
	server := NewStreamConn(left, protocol.FrameOptions{})
	viewer := NewStreamConn(right, protocol.FrameOptions{})
	defer viewer.Close()

	received := make(chan protocol.Message, 4)
	ended := make(chan struct{})
	go func() {
		defer close(ended)
		for {
			message, err := viewer.Receive()
			if err != nil {
				return
			}
			received <- message
		}
	}()

	if err := server.Send(protocol.Message{Type: protocol.MessageTypeClose, Payload: []byte("bye")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	server.Close()

	message := testutil.RequireReceive(t, received, 5*time.Second, "waiting for queued close")
	if message.Type != protocol.MessageTypeClose || string(message.Payload) != "bye" {
		t.Errorf("received %s %q, want close \"bye\"", protocol.TypeName(message.Type), message.Payload)
	}
	testutil.RequireClosed(t, ended, 5*time.Second, "waiting for end of stream")
}

func TestStreamConnEncodeErrorKeepsConnOpen(t *testing.T) {
	t.Parallel()
	left, right := net.Pipe()
	defer right.Close()
	server := NewStreamConn(left, protocol.FrameOptions{MaxPayload: 4})
	defer server.Close()

	err := server.Send(protocol.Message{Type: protocol.MessageTypeUpdate, Payload: make([]byte, 5)})
	if err == nil || errors.Is(err, ErrClosed) {
		t.Fatalf("oversized Send = %v, want a framing error", err)
	}
	if server.isClosed() {
		t.Error("framing error closed the connection")
	}
}
