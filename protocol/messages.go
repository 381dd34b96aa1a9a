// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"

	"github.com/bureau-foundation/modularui/lib/codec"
)

// Close reasons used by this module. Reason is free text on the wire;
// peers log it and do not branch on it.
const (
	CloseReasonServer         = "closed by server"
	CloseReasonViewer         = "closed by viewer"
	CloseReasonReplaced       = "replaced by a newer UI"
	CloseReasonDisconnected   = "viewer disconnected"
	CloseReasonSendFailed     = "send failed"
	CloseReasonUnknownFactory = "unknown factory"
	CloseReasonCorruptHolder  = "corrupt sync data"
	CloseReasonDivergence     = "template divergence"
)

// Hello identifies the viewer on a new connection.
type Hello struct {
	Viewer    string `cbor:"viewer"`
	Name      string `cbor:"name,omitempty"`
	Automated bool   `cbor:"automated,omitempty"`
}

// WidgetUpdate is one widget delta inside an Open.
type WidgetUpdate struct {
	Widget  int    `cbor:"widget"`
	Payload []byte `cbor:"payload"`
}

// Open starts a session on the viewer. Updates are the snapshot of
// every widget's initial state, in the order they were produced.
type Open struct {
	Factory     uint16         `cbor:"factory"`
	Holder      []byte         `cbor:"holder"`
	Session     int32          `cbor:"session"`
	Fingerprint []byte         `cbor:"fingerprint"`
	Updates     []WidgetUpdate `cbor:"updates"`
}

// Update carries one widget delta after Open.
type Update struct {
	Session int32  `cbor:"session"`
	Widget  int    `cbor:"widget"`
	Payload []byte `cbor:"payload"`
}

// Close ends a session.
type Close struct {
	Session int32  `cbor:"session"`
	Reason  string `cbor:"reason,omitempty"`
}

// NewHelloMessage encodes a Hello.
func NewHelloMessage(hello Hello) (Message, error) {
	return newMessage(MessageTypeHello, hello)
}

// NewOpenMessage encodes an Open.
func NewOpenMessage(open Open) (Message, error) {
	return newMessage(MessageTypeOpen, open)
}

// NewUpdateMessage encodes an Update.
func NewUpdateMessage(update Update) (Message, error) {
	return newMessage(MessageTypeUpdate, update)
}

// NewCloseMessage encodes a Close.
func NewCloseMessage(session int32, reason string) (Message, error) {
	return newMessage(MessageTypeClose, Close{Session: session, Reason: reason})
}

// DecodeHello decodes a Hello message.
func DecodeHello(message Message) (Hello, error) {
	return decodeBody[Hello](message, MessageTypeHello)
}

// DecodeOpen decodes an Open message.
func DecodeOpen(message Message) (Open, error) {
	return decodeBody[Open](message, MessageTypeOpen)
}

// DecodeUpdate decodes an Update message.
func DecodeUpdate(message Message) (Update, error) {
	return decodeBody[Update](message, MessageTypeUpdate)
}

// DecodeClose decodes a Close message.
func DecodeClose(message Message) (Close, error) {
	return decodeBody[Close](message, MessageTypeClose)
}

func newMessage(messageType byte, body any) (Message, error) {
	payload, err := codec.Marshal(body)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s body: %w", TypeName(messageType), err)
	}
	return Message{Type: messageType, Payload: payload}, nil
}

func decodeBody[T any](message Message, want byte) (T, error) {
	var body T
	if message.Type != want {
		return body, &FrameError{Type: message.Type, Reason: "expected " + TypeName(want)}
	}
	if err := codec.Unmarshal(message.Payload, &body); err != nil {
		var zero T
		return zero, &FrameError{Type: message.Type, Reason: "decode body", Err: err}
	}
	return body, nil
}
