// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/modularui/lib/codec"
)

// listDelta carries only the entries that changed since the last
// broadcast, plus the new length. Entries past Length are dropped on
// apply.
type listDelta struct {
	Length  int            `cbor:"length"`
	Changed map[int]string `cbor:"changed,omitempty"`
}

// List is an ordered list of strings, such as the contents of a
// machine's inventory slots. Deltas are index-sparse: changing one
// slot of a hundred sends one entry.
type List struct {
	label  string
	source func() []string

	items  []string
	synced bool
}

// NewList creates a list widget bound to source. The returned slice
// from source is copied; the holder may reuse it.
func NewList(label string, source func() []string) *List {
	return &List{label: label, source: source}
}

func (l *List) Kind() string { return "list" }

func (l *List) DetectChanges(emit Emitter) error {
	if l.source == nil {
		return nil
	}
	current := l.source()
	if l.synced && slices.Equal(current, l.items) {
		return nil
	}

	delta := listDelta{Length: len(current)}
	for index, item := range current {
		if l.synced && index < len(l.items) && l.items[index] == item {
			continue
		}
		if delta.Changed == nil {
			delta.Changed = make(map[int]string)
		}
		delta.Changed[index] = item
	}

	payload, err := codec.Marshal(delta)
	if err != nil {
		return fmt.Errorf("list widget: encoding delta: %w", err)
	}
	l.items = slices.Clone(current)
	l.synced = true
	emit.EmitDelta(payload)
	return nil
}

func (l *List) ApplyDelta(payload []byte) error {
	var delta listDelta
	if err := codec.Unmarshal(payload, &delta); err != nil {
		return fmt.Errorf("list widget: %w: %v", ErrMalformedDelta, err)
	}
	if delta.Length < 0 {
		return fmt.Errorf("list widget: %w: negative length %d", ErrMalformedDelta, delta.Length)
	}
	for index := range delta.Changed {
		if index < 0 || index >= delta.Length {
			return fmt.Errorf("list widget: %w: index %d outside length %d", ErrMalformedDelta, index, delta.Length)
		}
	}

	if delta.Length <= len(l.items) {
		l.items = l.items[:delta.Length]
	} else {
		l.items = append(l.items, make([]string, delta.Length-len(l.items))...)
	}
	for index, item := range delta.Changed {
		l.items[index] = item
	}
	l.synced = true
	return nil
}

// Items returns a copy of the presented items.
func (l *List) Items() []string { return slices.Clone(l.items) }

// Label returns the list's label.
func (l *List) Label() string { return l.label }

func (l *List) String() string {
	return fmt.Sprintf("%s: [%s]", l.label, strings.Join(l.items, ", "))
}
