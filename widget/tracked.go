// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"fmt"

	"github.com/bureau-foundation/modularui/lib/codec"
)

// Tracked is a widget whose entire state is one comparable value. The
// delta is the CBOR encoding of the new value.
//
// On the authoritative side, source reads the live value from the
// holder. On the observing side source is never called; the value
// field holds whatever the last delta carried.
type Tracked[T comparable] struct {
	kind   string
	source func() T
	format func(T) string

	// value is the last broadcast value (authoritative) or the
	// presented value (observing).
	value T
	// synced is false until the first emit or apply. The first
	// DetectChanges always emits, even for a zero value, so the
	// observing side never presents a default it did not receive.
	synced bool
}

// NewTracked creates a Tracked widget. format may be nil, in which
// case values are rendered with %v.
func NewTracked[T comparable](kind string, source func() T, format func(T) string) *Tracked[T] {
	if format == nil {
		format = func(value T) string { return fmt.Sprintf("%v", value) }
	}
	return &Tracked[T]{kind: kind, source: source, format: format}
}

func (w *Tracked[T]) Kind() string { return w.kind }

func (w *Tracked[T]) DetectChanges(emit Emitter) error {
	if w.source == nil {
		return nil
	}
	current := w.source()
	if w.synced && current == w.value {
		return nil
	}
	payload, err := codec.Marshal(current)
	if err != nil {
		return fmt.Errorf("%s widget: encoding delta: %w", w.kind, err)
	}
	w.value = current
	w.synced = true
	emit.EmitDelta(payload)
	return nil
}

func (w *Tracked[T]) ApplyDelta(payload []byte) error {
	var value T
	if err := codec.Unmarshal(payload, &value); err != nil {
		return fmt.Errorf("%s widget: %w: %v", w.kind, ErrMalformedDelta, err)
	}
	w.value = value
	w.synced = true
	return nil
}

// Value returns the presented (or last broadcast) value.
func (w *Tracked[T]) Value() T { return w.value }

// Synced reports whether the widget has emitted or applied at least
// one delta.
func (w *Tracked[T]) Synced() bool { return w.synced }

func (w *Tracked[T]) String() string { return w.format(w.value) }

// NewText creates a text widget bound to source.
func NewText(source func() string) *Tracked[string] {
	return NewTracked("text", source, nil)
}

// NewToggle creates an on/off indicator rendered as "label: on".
func NewToggle(label string, source func() bool) *Tracked[bool] {
	return NewTracked("toggle", source, func(on bool) string {
		if on {
			return label + ": on"
		}
		return label + ": off"
	})
}

// NewNumber creates a numeric readout rendered as "label: 42 unit".
func NewNumber(label, unit string, source func() int64) *Tracked[int64] {
	return NewTracked("number", source, func(value int64) string {
		if unit == "" {
			return fmt.Sprintf("%s: %d", label, value)
		}
		return fmt.Sprintf("%s: %d %s", label, value, unit)
	})
}
