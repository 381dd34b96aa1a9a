// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/modularui/lib/testutil"
	"github.com/bureau-foundation/modularui/protocol"
)

func TestPipePreservesOrder(t *testing.T) {
	t.Parallel()
	server, viewer := Pipe()
	defer server.Close()
	defer viewer.Close()

	for i := range 100 {
		if err := server.Send(protocol.Message{Type: protocol.MessageTypeUpdate, Payload: []byte{byte(i)}}); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	for i := range 100 {
		message, err := viewer.Receive()
		if err != nil {
			t.Fatalf("Receive %d: %v", i, err)
		}
		if message.Payload[0] != byte(i) {
			t.Fatalf("message %d carried %d", i, message.Payload[0])
		}
	}
}

func TestPipeCopiesPayload(t *testing.T) {
	t.Parallel()
	server, viewer := Pipe()
	payload := []byte{1, 2, 3}
	server.Send(protocol.Message{Type: protocol.MessageTypeUpdate, Payload: payload})
	payload[0] = 9

	message, err := viewer.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if message.Payload[0] != 1 {
		t.Error("Receive observed a mutation made after Send")
	}
}

func TestPipeBlocksUntilSend(t *testing.T) {
	t.Parallel()
	server, viewer := Pipe()

	received := make(chan protocol.Message, 1)
	go func() {
		message, err := viewer.Receive()
		if err == nil {
			received <- message
		}
	}()

	select {
	case <-received:
		t.Fatal("Receive returned before anything was sent")
	case <-time.After(20 * time.Millisecond):
	}
	server.Send(protocol.Message{Type: protocol.MessageTypeClose})
	message := testutil.RequireReceive(t, received, 5*time.Second, "waiting for message")
	if message.Type != protocol.MessageTypeClose {
		t.Errorf("Type = %s", protocol.TypeName(message.Type))
	}
}

func TestPipeCloseSemantics(t *testing.T) {
	t.Parallel()
	server, viewer := Pipe()

	server.Send(protocol.Message{Type: protocol.MessageTypeUpdate})
	server.Close()

	// Messages sent before close are still delivered, then EOF.
	if _, err := viewer.Receive(); err != nil {
		t.Fatalf("Receive before EOF: %v", err)
	}
	if _, err := viewer.Receive(); !errors.Is(err, io.EOF) {
		t.Errorf("Receive after peer close = %v, want io.EOF", err)
	}
	if err := viewer.Send(protocol.Message{Type: protocol.MessageTypeClose}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send to closed peer = %v, want ErrClosed", err)
	}
	if err := server.Send(protocol.Message{Type: protocol.MessageTypeClose}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after local close = %v, want ErrClosed", err)
	}
	if _, err := server.Receive(); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive after local close = %v, want ErrClosed", err)
	}
}

func TestPipeCloseUnblocksReceive(t *testing.T) {
	t.Parallel()
	_, viewer := Pipe()

	done := make(chan error, 1)
	go func() {
		_, err := viewer.Receive()
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	viewer.Close()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Receive"); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive = %v, want ErrClosed", err)
	}
}

func TestPipeConcurrentSenders(t *testing.T) {
	t.Parallel()
	server, viewer := Pipe()

	const senders, perSender = 8, 50
	var wg sync.WaitGroup
	for sender := range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perSender {
				server.Send(protocol.Message{Type: protocol.MessageTypeUpdate, Payload: []byte{byte(sender), byte(i)}})
			}
		}()
	}
	wg.Wait()

	// Each sender's messages stay in that sender's order.
	next := make([]int, senders)
	for range senders * perSender {
		message, err := viewer.Receive()
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		sender, sequence := message.Payload[0], int(message.Payload[1])
		if sequence != next[sender] {
			t.Fatalf("sender %d: got sequence %d, want %d", sender, sequence, next[sender])
		}
		next[sender]++
	}
}
