// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/modularui/lib/compression"
	"github.com/bureau-foundation/modularui/lib/testutil"
	"github.com/bureau-foundation/modularui/protocol"
)

func TestTCPListener_Address(t *testing.T) {
	listener, err := NewTCPListener("127.0.0.1:0", protocol.FrameOptions{})
	if err != nil {
		t.Fatalf("NewTCPListener() error: %v", err)
	}
	defer listener.Close()

	address := listener.Address()
	if !strings.Contains(address, ":") {
		t.Errorf("Address() = %q, expected host:port format", address)
	}
}

func TestTCPRoundTrip(t *testing.T) {
	options := protocol.FrameOptions{Compression: compression.LZ4, CompressionThreshold: 128}
	listener, err := NewTCPListener("127.0.0.1:0", options)
	if err != nil {
		t.Fatalf("NewTCPListener() error: %v", err)
	}
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Echo every message back with the same type and payload.
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- listener.Serve(ctx, func(ctx context.Context, conn Conn) {
			for {
				message, err := conn.Receive()
				if err != nil {
					return
				}
				if err := conn.Send(message); err != nil {
					return
				}
			}
		})
	}()

	dialer := &TCPDialer{Timeout: 5 * time.Second, Options: options}
	conn, err := dialer.DialContext(ctx, listener.Address())
	if err != nil {
		t.Fatalf("DialContext() error: %v", err)
	}
	defer conn.Close()

	sent := []protocol.Message{
		{Type: protocol.MessageTypeHello, Payload: []byte("viewer")},
		{Type: protocol.MessageTypeOpen, Payload: bytes.Repeat([]byte("slot "), 200)},
		{Type: protocol.MessageTypeClose},
	}
	for _, message := range sent {
		if err := conn.Send(message); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	for i, want := range sent {
		got, err := conn.Receive()
		if err != nil {
			t.Fatalf("Receive %d: %v", i, err)
		}
		if got.Type != want.Type || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("message %d: got %s (%d bytes), want %s (%d bytes)", i,
				protocol.TypeName(got.Type), len(got.Payload), protocol.TypeName(want.Type), len(want.Payload))
		}
	}

	cancel()
	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "waiting for Serve to return"); err != nil {
		t.Errorf("Serve() = %v, want nil", err)
	}

	// Shutdown closed the server side of the connection.
	if _, err := conn.Receive(); err == nil {
		t.Error("Receive after shutdown succeeded")
	}
}

func TestTCPListener_CloseStopsServe(t *testing.T) {
	listener, err := NewTCPListener("127.0.0.1:0", protocol.FrameOptions{})
	if err != nil {
		t.Fatalf("NewTCPListener() error: %v", err)
	}

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- listener.Serve(context.Background(), func(ctx context.Context, conn Conn) {
			<-ctx.Done()
		})
	}()

	dialer := &TCPDialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(context.Background(), listener.Address())
	if err != nil {
		t.Fatalf("DialContext() error: %v", err)
	}
	defer conn.Close()

	listener.Close()
	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "waiting for Serve to return"); err != nil {
		t.Errorf("Serve() = %v, want nil", err)
	}
}

func TestTCPDialer_Refused(t *testing.T) {
	listener, err := NewTCPListener("127.0.0.1:0", protocol.FrameOptions{})
	if err != nil {
		t.Fatalf("NewTCPListener() error: %v", err)
	}
	address := listener.Address()
	listener.Close()

	dialer := &TCPDialer{Timeout: time.Second}
	if _, err := dialer.DialContext(context.Background(), address); err == nil {
		t.Error("DialContext() to a closed listener succeeded")
	}
}
