// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bureau-foundation/modularui/protocol"
)

var _ Conn = (*StreamConn)(nil)

// DefaultSendQueue is the number of encoded frames a StreamConn
// buffers for a peer that is not reading before it gives up on the
// connection.
const DefaultSendQueue = 1024

// closeLinger bounds how long Close waits for queued frames to reach
// the stream before closing it anyway.
const closeLinger = time.Second

// StreamConn frames protocol messages over a byte stream. Send encodes
// the frame and queues it; a per-connection writer goroutine drains
// the queue onto the stream, so a peer that stops reading never blocks
// the sender. When the queue fills, the connection is closed.
type StreamConn struct {
	stream  io.ReadWriteCloser
	options protocol.FrameOptions
	reader  *bufio.Reader

	// sendMu orders enqueues against each other and against Close.
	sendMu   sync.Mutex
	outbound chan []byte

	closingOnce sync.Once
	closing     chan struct{}
	writerDone  chan struct{}

	streamOnce sync.Once
	closeErr   error

	errMu    sync.Mutex
	writeErr error
}

// NewStreamConn wraps stream with a send queue of DefaultSendQueue
// frames. The StreamConn owns the stream and closes it on Close.
func NewStreamConn(stream io.ReadWriteCloser, options protocol.FrameOptions) *StreamConn {
	return NewStreamConnWithQueue(stream, options, DefaultSendQueue)
}

// NewStreamConnWithQueue is NewStreamConn with an explicit send queue
// capacity. A capacity below 1 is treated as 1.
func NewStreamConnWithQueue(stream io.ReadWriteCloser, options protocol.FrameOptions, queue int) *StreamConn {
	if queue < 1 {
		queue = 1
	}
	c := &StreamConn{
		stream:     stream,
		options:    options,
		reader:     bufio.NewReader(stream),
		outbound:   make(chan []byte, queue),
		closing:    make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *StreamConn) isClosed() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

func (c *StreamConn) markClosing() {
	c.closingOnce.Do(func() { close(c.closing) })
}

func (c *StreamConn) closeStream() error {
	c.streamOnce.Do(func() { c.closeErr = c.stream.Close() })
	return c.closeErr
}

// writeLoop drains the send queue onto the stream. It flushes whenever
// the queue runs empty so a burst of frames shares one write. Once the
// connection is closing it writes what is already queued and exits.
func (c *StreamConn) writeLoop() {
	defer close(c.writerDone)
	writer := bufio.NewWriter(c.stream)
	for {
		select {
		case frame := <-c.outbound:
			if _, err := writer.Write(frame); err != nil {
				c.fail(fmt.Errorf("write frame: %w", err))
				return
			}
			if len(c.outbound) > 0 {
				continue
			}
			if err := writer.Flush(); err != nil {
				c.fail(fmt.Errorf("flush frames: %w", err))
				return
			}
		case <-c.closing:
			for {
				select {
				case frame := <-c.outbound:
					if _, err := writer.Write(frame); err != nil {
						return
					}
				default:
					writer.Flush()
					return
				}
			}
		}
	}
}

// fail records the first write error and closes the connection
// without waiting for the queue.
func (c *StreamConn) fail(err error) {
	c.errMu.Lock()
	if c.writeErr == nil {
		c.writeErr = err
	}
	c.errMu.Unlock()
	c.markClosing()
	c.closeStream()
}

// sendErr is what Send reports on a closed connection: the failure
// that closed it, or ErrClosed.
func (c *StreamConn) sendErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.writeErr != nil {
		return fmt.Errorf("%w: %w", ErrClosed, c.writeErr)
	}
	return ErrClosed
}

// Send encodes message and queues it for the writer. Encoding errors
// are returned directly and leave the connection open. Send never
// blocks on the peer: if the queue is full the connection is closed
// and the error wraps ErrSendQueueFull.
func (c *StreamConn) Send(message protocol.Message) error {
	if c.isClosed() {
		return c.sendErr()
	}
	frame, err := protocol.EncodeFrame(message, c.options)
	if err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.isClosed() {
		return c.sendErr()
	}
	select {
	case c.outbound <- frame:
		return nil
	default:
	}
	c.fail(fmt.Errorf("%w after %d frames", ErrSendQueueFull, cap(c.outbound)))
	return fmt.Errorf("send %s: %w", protocol.TypeName(message.Type), ErrSendQueueFull)
}

// Receive reads the next message.
func (c *StreamConn) Receive() (protocol.Message, error) {
	message, err := protocol.ReadMessage(c.reader, c.options)
	if err != nil && c.isClosed() {
		return protocol.Message{}, ErrClosed
	}
	return message, err
}

// Close stops accepting sends, gives the writer a short grace period
// to deliver frames already queued, then closes the underlying stream.
// Frames still queued after that are discarded.
func (c *StreamConn) Close() error {
	c.sendMu.Lock()
	c.markClosing()
	c.sendMu.Unlock()

	linger := time.NewTimer(closeLinger)
	defer linger.Stop()
	select {
	case <-c.writerDone:
	case <-linger.C:
	}
	return c.closeStream()
}
