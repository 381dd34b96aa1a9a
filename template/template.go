// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package template holds the ordered widget tree a session is built
// from.
//
// Both sides of a session build their own Template from the same
// holder and viewer, and widget ids are assigned by Add in build
// order. Nothing about the tree itself travels on the wire; only its
// [Fingerprint] does, so the observing side can tell that its build
// diverged before it applies a single delta to the wrong widget.
package template

import (
	"errors"

	"github.com/bureau-foundation/modularui/widget"
)

// ErrDivergence means the observing side built a template that does
// not match the authoritative one: a fingerprint mismatch, or an
// initial delta addressed to an id the local build does not have. The
// session cannot continue.
var ErrDivergence = errors.New("template divergence")

// ErrUnknownWidget means an Update addressed a widget id absent from
// the local template. The single message is dropped.
var ErrUnknownWidget = errors.New("unknown widget target")

// Template is an ordered mapping from widget id to widget. Ids are
// dense, starting at 0, and never change after the build.
type Template struct {
	title   string
	widgets []widget.Widget
}

// New creates an empty template with a title.
func New(title string) *Template {
	return &Template{title: title}
}

// Add appends w and returns its id.
func (t *Template) Add(w widget.Widget) int {
	t.widgets = append(t.widgets, w)
	return len(t.widgets) - 1
}

// Title returns the template title.
func (t *Template) Title() string { return t.title }

// Widget returns the widget with the given id.
func (t *Template) Widget(id int) (widget.Widget, bool) {
	if id < 0 || id >= len(t.widgets) {
		return nil, false
	}
	return t.widgets[id], true
}

// Len returns the number of widgets.
func (t *Template) Len() int { return len(t.widgets) }

// IDs returns every widget id in order.
func (t *Template) IDs() []int {
	ids := make([]int, len(t.widgets))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// Each calls fn for every widget in id order.
func (t *Template) Each(fn func(id int, w widget.Widget)) {
	for id, w := range t.widgets {
		fn(id, w)
	}
}

// InitWidgets runs InitWidget on every widget implementing
// widget.Initializer, in id order.
func (t *Template) InitWidgets() {
	for _, w := range t.widgets {
		if initializer, ok := w.(widget.Initializer); ok {
			initializer.InitWidget()
		}
	}
}
