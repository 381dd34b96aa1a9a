// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol is the wire format between the authoritative side
// and a viewer.
//
// Every message is a 5-byte header (1 byte type + 4 byte big-endian
// payload length) followed by the payload. Payloads are CBOR bodies
// (see messages.go). When the high bit of the type byte is set, the
// payload is compressed and begins with a 1-byte compression tag and a
// 4-byte big-endian uncompressed length.
//
// A viewer connection starts with exactly one Hello from the viewer.
// After that the server sends Open, Update and Close; the viewer only
// ever sends Close.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/modularui/lib/compression"
)

const (
	// MessageTypeHello identifies the viewer. Viewer→server only,
	// first message on the connection.
	MessageTypeHello byte = 0x01

	// MessageTypeOpen starts a session: factory id, encoded holder,
	// session id, template fingerprint and the initial widget deltas.
	// Server→viewer only.
	MessageTypeOpen byte = 0x02

	// MessageTypeUpdate carries one widget delta for an open session.
	// Server→viewer only.
	MessageTypeUpdate byte = 0x03

	// MessageTypeClose ends a session. Bidirectional.
	MessageTypeClose byte = 0x04
)

// flagCompressed marks a compressed payload in the type byte.
const flagCompressed byte = 0x80

// messageHeaderLength is 1 byte type + 4 bytes payload length.
const messageHeaderLength = 5

// compressionHeaderLength is 1 byte tag + 4 bytes uncompressed length.
const compressionHeaderLength = 5

// DefaultMaxPayload bounds a single payload, before and after
// decompression.
const DefaultMaxPayload = 16 * 1024 * 1024

// DefaultCompressionThreshold is the smallest payload worth
// compressing.
const DefaultCompressionThreshold = 1024

// Message is a single framed protocol message.
type Message struct {
	Type    byte
	Payload []byte
}

// TypeName returns a readable name for a message type.
func TypeName(messageType byte) string {
	switch messageType {
	case MessageTypeHello:
		return "hello"
	case MessageTypeOpen:
		return "open"
	case MessageTypeUpdate:
		return "update"
	case MessageTypeClose:
		return "close"
	default:
		return fmt.Sprintf("unknown(0x%02x)", messageType)
	}
}

// FrameOptions controls framing on one connection. The zero value
// uses the default payload limit and never compresses.
type FrameOptions struct {
	// MaxPayload rejects frames larger than this many bytes. Zero
	// means DefaultMaxPayload.
	MaxPayload int

	// Compression is applied to outgoing payloads at or above
	// CompressionThreshold. Incoming frames are decompressed
	// regardless of this setting.
	Compression compression.Tag

	// CompressionThreshold is the smallest payload that is
	// compressed. Zero means DefaultCompressionThreshold.
	CompressionThreshold int
}

func (o FrameOptions) maxPayload() int {
	if o.MaxPayload <= 0 {
		return DefaultMaxPayload
	}
	return o.MaxPayload
}

func (o FrameOptions) threshold() int {
	if o.CompressionThreshold <= 0 {
		return DefaultCompressionThreshold
	}
	return o.CompressionThreshold
}

// FrameError reports a frame that was read completely but cannot be
// accepted. The stream is still aligned on a frame boundary, but the
// peer is misbehaving and callers normally drop the connection.
type FrameError struct {
	Type   byte
	Reason string
	Err    error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s frame: %s: %v", TypeName(e.Type), e.Reason, e.Err)
	}
	return fmt.Sprintf("%s frame: %s", TypeName(e.Type), e.Reason)
}

func (e *FrameError) Unwrap() error { return e.Err }

// WriteMessage writes a framed message to w.
func WriteMessage(w io.Writer, message Message, options FrameOptions) error {
	frame, err := EncodeFrame(message, options)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", TypeName(message.Type), err)
	}
	return nil
}

// EncodeFrame returns the complete frame for message, header included,
// compressing the payload when options call for it.
func EncodeFrame(message Message, options FrameOptions) ([]byte, error) {
	if message.Type&flagCompressed != 0 {
		return nil, fmt.Errorf("message type 0x%02x uses the compression flag bit", message.Type)
	}
	if len(message.Payload) > options.maxPayload() {
		return nil, fmt.Errorf("%s payload length %d exceeds maximum %d",
			TypeName(message.Type), len(message.Payload), options.maxPayload())
	}

	messageType := message.Type
	payload := message.Payload
	var compressionHeader []byte
	if options.Compression != compression.None && len(payload) >= options.threshold() {
		compressed, err := compression.Compress(payload, options.Compression)
		switch {
		case err == nil:
			compressionHeader = make([]byte, compressionHeaderLength)
			compressionHeader[0] = byte(options.Compression)
			binary.BigEndian.PutUint32(compressionHeader[1:5], uint32(len(payload)))
			messageType |= flagCompressed
			payload = compressed
		case errors.Is(err, compression.ErrIncompressible):
		default:
			return nil, fmt.Errorf("compress %s payload: %w", TypeName(message.Type), err)
		}
	}

	frame := make([]byte, messageHeaderLength, messageHeaderLength+len(compressionHeader)+len(payload))
	frame[0] = messageType
	binary.BigEndian.PutUint32(frame[1:5], uint32(len(compressionHeader)+len(payload)))
	frame = append(frame, compressionHeader...)
	frame = append(frame, payload...)
	return frame, nil
}

// ReadMessage reads one framed message from r, decompressing it if
// needed. A clean end of stream before the header returns an error
// wrapping io.EOF.
func ReadMessage(r io.Reader, options FrameOptions) (Message, error) {
	var header [messageHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, fmt.Errorf("read message header: %w", err)
	}
	messageType := header[0]
	payloadLength := binary.BigEndian.Uint32(header[1:5])
	if uint64(payloadLength) > uint64(options.maxPayload()) {
		return Message{}, &FrameError{
			Type:   messageType &^ flagCompressed,
			Reason: fmt.Sprintf("payload length %d exceeds maximum %d", payloadLength, options.maxPayload()),
		}
	}
	payload := make([]byte, payloadLength)
	if payloadLength > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, fmt.Errorf("read message payload: %w", err)
		}
	}

	if messageType&flagCompressed == 0 {
		return Message{Type: messageType, Payload: payload}, nil
	}
	messageType &^= flagCompressed
	decompressed, err := decompressPayload(payload, options.maxPayload())
	if err != nil {
		return Message{}, &FrameError{Type: messageType, Reason: "decompress", Err: err}
	}
	return Message{Type: messageType, Payload: decompressed}, nil
}

func decompressPayload(payload []byte, maxPayload int) ([]byte, error) {
	if len(payload) < compressionHeaderLength {
		return nil, fmt.Errorf("compressed payload is %d bytes, shorter than its header", len(payload))
	}
	tag := compression.Tag(payload[0])
	if tag == compression.None {
		return nil, errors.New("compression flag set with tag none")
	}
	size := binary.BigEndian.Uint32(payload[1:5])
	if uint64(size) > uint64(maxPayload) {
		return nil, fmt.Errorf("uncompressed length %d exceeds maximum %d", size, maxPayload)
	}
	return compression.Decompress(payload[compressionHeaderLength:], tag, int(size))
}
