// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import "fmt"

// ProgressValue is the state of a progress bar.
type ProgressValue struct {
	Current int64 `cbor:"current"`
	Maximum int64 `cbor:"maximum"`
}

// Fraction returns Current/Maximum clamped to [0, 1]. A zero maximum
// reads as empty.
func (p ProgressValue) Fraction() float64 {
	if p.Maximum <= 0 {
		return 0
	}
	fraction := float64(p.Current) / float64(p.Maximum)
	switch {
	case fraction < 0:
		return 0
	case fraction > 1:
		return 1
	}
	return fraction
}

// Progress is a labelled progress bar.
type Progress struct {
	*Tracked[ProgressValue]
	label string
}

// NewProgress creates a progress bar bound to source.
func NewProgress(label string, source func() ProgressValue) *Progress {
	return &Progress{
		Tracked: NewTracked("progress", source, func(value ProgressValue) string {
			return fmt.Sprintf("%s: %d/%d", label, value.Current, value.Maximum)
		}),
		label: label,
	}
}

// Label returns the bar's label.
func (p *Progress) Label() string { return p.label }
