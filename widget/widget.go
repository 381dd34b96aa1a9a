// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package widget defines the stateful UI elements that make up a
// modular UI template and the delta contract each one satisfies.
//
// A widget instance lives on exactly one side of a session. On the
// authoritative side, DetectChanges compares the widget's live value
// against the value it last broadcast and, when they differ, emits a
// delta and adopts the live value as the new baseline. On the
// observing side, ApplyDelta mutates the widget's presentation state
// to match. Because the baseline moves on every emit, calling
// DetectChanges twice without an intervening mutation emits at most
// once.
//
// Deltas are not self-describing: a delta assumes the receiver last
// applied exactly what the sender last emitted. Transports must
// therefore deliver one widget's deltas in order.
package widget

import (
	"errors"
)

// Emitter receives the deltas produced by DetectChanges. The session
// that owns a template binds one Emitter per widget id.
type Emitter interface {
	EmitDelta(payload []byte)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(payload []byte)

// EmitDelta calls f(payload).
func (f EmitterFunc) EmitDelta(payload []byte) { f(payload) }

// Widget is a single stateful UI element.
type Widget interface {
	// Kind names the widget type. It is part of the template
	// fingerprint, so two sides that build different kinds at the
	// same id are detected as divergent.
	Kind() string

	// DetectChanges emits a delta if the live value differs from the
	// last broadcast value. Authoritative side only.
	DetectChanges(emit Emitter) error

	// ApplyDelta updates presentation state from a delta produced by
	// the authoritative twin of this widget. Observing side only.
	ApplyDelta(payload []byte) error

	// String renders the current presentation state as text.
	String() string
}

// Initializer is implemented by widgets that need a setup step once
// the whole template is built.
type Initializer interface {
	InitWidget()
}

// ErrMalformedDelta is wrapped by every ApplyDelta failure.
var ErrMalformedDelta = errors.New("malformed widget delta")
