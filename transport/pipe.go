// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/bureau-foundation/modularui/protocol"
)

// Pipe returns two connected in-memory Conns. Buffering is unbounded,
// so Send never blocks. Payloads are copied on Send; the sender may
// reuse its buffer.
func Pipe() (Conn, Conn) {
	forward := newPipeQueue()
	backward := newPipeQueue()
	return &pipeConn{out: forward, in: backward}, &pipeConn{out: backward, in: forward}
}

// pipeQueue is one direction of a pipe.
type pipeQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	messages []protocol.Message
	// writerClosed: no more messages will arrive; drain then EOF.
	writerClosed bool
	// readerClosed: nobody will read; sends fail.
	readerClosed bool
}

func newPipeQueue() *pipeQueue {
	queue := &pipeQueue{}
	queue.cond = sync.NewCond(&queue.mu)
	return queue
}

type pipeConn struct {
	out *pipeQueue
	in  *pipeQueue
}

func (c *pipeConn) Send(message protocol.Message) error {
	c.out.mu.Lock()
	defer c.out.mu.Unlock()
	if c.out.writerClosed || c.out.readerClosed {
		return ErrClosed
	}
	message.Payload = slices.Clone(message.Payload)
	c.out.messages = append(c.out.messages, message)
	c.out.cond.Signal()
	return nil
}

func (c *pipeConn) Receive() (protocol.Message, error) {
	c.in.mu.Lock()
	defer c.in.mu.Unlock()
	for len(c.in.messages) == 0 && !c.in.writerClosed && !c.in.readerClosed {
		c.in.cond.Wait()
	}
	if c.in.readerClosed {
		return protocol.Message{}, ErrClosed
	}
	if len(c.in.messages) == 0 {
		return protocol.Message{}, fmt.Errorf("read message header: %w", io.EOF)
	}
	message := c.in.messages[0]
	c.in.messages[0] = protocol.Message{}
	c.in.messages = c.in.messages[1:]
	return message, nil
}

func (c *pipeConn) Close() error {
	c.out.mu.Lock()
	c.out.writerClosed = true
	c.out.cond.Broadcast()
	c.out.mu.Unlock()

	c.in.mu.Lock()
	c.in.readerClosed = true
	c.in.messages = nil
	c.in.cond.Broadcast()
	c.in.mu.Unlock()
	return nil
}
