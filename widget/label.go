// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import "fmt"

// Label is static text. Both sides build it with the same text, so it
// never emits and never accepts a delta.
type Label struct {
	text string
}

// NewLabel creates a static label.
func NewLabel(text string) *Label { return &Label{text: text} }

func (l *Label) Kind() string { return "label" }

func (l *Label) DetectChanges(Emitter) error { return nil }

func (l *Label) ApplyDelta([]byte) error {
	return fmt.Errorf("label widget: %w: labels carry no state", ErrMalformedDelta)
}

func (l *Label) String() string { return l.text }
