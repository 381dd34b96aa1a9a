// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"errors"
	"slices"
	"testing"
)

// recorder collects emitted deltas.
type recorder struct {
	payloads [][]byte
}

func (r *recorder) EmitDelta(payload []byte) {
	r.payloads = append(r.payloads, payload)
}

// mirror runs DetectChanges on source and applies every emitted delta
// to target, returning the number of deltas.
func mirror(t *testing.T, source, target Widget) int {
	t.Helper()
	var emitted recorder
	if err := source.DetectChanges(&emitted); err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	for _, payload := range emitted.payloads {
		if err := target.ApplyDelta(payload); err != nil {
			t.Fatalf("ApplyDelta: %v", err)
		}
	}
	return len(emitted.payloads)
}

func TestDetectChangesIsIdempotent(t *testing.T) {
	t.Parallel()
	text := "idle"
	on := true
	var energy int64 = 12
	progress := ProgressValue{Current: 3, Maximum: 10}
	items := []string{"iron", "", "coal"}

	widgets := map[string]Widget{
		"text":     NewText(func() string { return text }),
		"toggle":   NewToggle("Working", func() bool { return on }),
		"number":   NewNumber("Energy", "EU", func() int64 { return energy }),
		"progress": NewProgress("Progress", func() ProgressValue { return progress }),
		"list":     NewList("Slots", func() []string { return items }),
	}

	for name, w := range widgets {
		t.Run(name, func(t *testing.T) {
			var first, second recorder
			if err := w.DetectChanges(&first); err != nil {
				t.Fatalf("first DetectChanges: %v", err)
			}
			if err := w.DetectChanges(&second); err != nil {
				t.Fatalf("second DetectChanges: %v", err)
			}
			if len(first.payloads) != 1 {
				t.Errorf("first call emitted %d deltas, want 1", len(first.payloads))
			}
			if len(second.payloads) != 0 {
				t.Errorf("second call without mutation emitted %d deltas, want 0", len(second.payloads))
			}
		})
	}
}

func TestFirstDetectEmitsZeroValue(t *testing.T) {
	t.Parallel()
	source := NewNumber("Count", "", func() int64 { return 0 })
	target := NewNumber("Count", "", nil)

	if n := mirror(t, source, target); n != 1 {
		t.Fatalf("emitted %d deltas for initial zero value, want 1", n)
	}
	if !target.Synced() {
		t.Error("target should be synced after applying the initial delta")
	}
}

func TestTrackedMirrorsMutations(t *testing.T) {
	t.Parallel()
	status := "idle"
	source := NewText(func() string { return status })
	target := NewText(nil)

	mirror(t, source, target)
	if target.Value() != "idle" {
		t.Fatalf("target = %q, want idle", target.Value())
	}

	status = "smelting"
	if n := mirror(t, source, target); n != 1 {
		t.Fatalf("emitted %d deltas after mutation, want 1", n)
	}
	if target.String() != "smelting" {
		t.Errorf("target = %q, want smelting", target.String())
	}

	// Writing the same value again is not a change.
	status = "smelting"
	if n := mirror(t, source, target); n != 0 {
		t.Errorf("emitted %d deltas for an unchanged value, want 0", n)
	}
}

func TestObservingWidgetNeverEmits(t *testing.T) {
	t.Parallel()
	target := NewToggle("Working", nil)
	var emitted recorder
	if err := target.DetectChanges(&emitted); err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(emitted.payloads) != 0 {
		t.Errorf("widget without a source emitted %d deltas", len(emitted.payloads))
	}
}

func TestToggleAndNumberFormatting(t *testing.T) {
	t.Parallel()
	toggle := NewToggle("Working", func() bool { return true })
	number := NewNumber("Energy", "EU", func() int64 { return 128 })
	mirrorToggle := NewToggle("Working", nil)
	mirrorNumber := NewNumber("Energy", "EU", nil)

	mirror(t, toggle, mirrorToggle)
	mirror(t, number, mirrorNumber)

	if got := mirrorToggle.String(); got != "Working: on" {
		t.Errorf("toggle = %q, want %q", got, "Working: on")
	}
	if got := mirrorNumber.String(); got != "Energy: 128 EU" {
		t.Errorf("number = %q, want %q", got, "Energy: 128 EU")
	}
}

func TestProgressFraction(t *testing.T) {
	t.Parallel()
	tests := []struct {
		value ProgressValue
		want  float64
	}{
		{ProgressValue{Current: 5, Maximum: 10}, 0.5},
		{ProgressValue{Current: 0, Maximum: 0}, 0},
		{ProgressValue{Current: 15, Maximum: 10}, 1},
		{ProgressValue{Current: -1, Maximum: 10}, 0},
	}
	for _, test := range tests {
		if got := test.value.Fraction(); got != test.want {
			t.Errorf("%+v.Fraction() = %v, want %v", test.value, got, test.want)
		}
	}

	value := ProgressValue{Current: 40, Maximum: 200}
	source := NewProgress("Progress", func() ProgressValue { return value })
	target := NewProgress("Progress", nil)
	mirror(t, source, target)
	if target.Value() != value {
		t.Errorf("target = %+v, want %+v", target.Value(), value)
	}
	if target.String() != "Progress: 40/200" {
		t.Errorf("String = %q", target.String())
	}
}

func TestListSendsOnlyChangedEntries(t *testing.T) {
	t.Parallel()
	items := []string{"iron", "coal", "", "gold"}
	source := NewList("Slots", func() []string { return items })
	target := NewList("Slots", nil)
	mirror(t, source, target)

	items[2] = "tin"
	var emitted recorder
	if err := source.DetectChanges(&emitted); err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(emitted.payloads) != 1 {
		t.Fatalf("emitted %d deltas, want 1", len(emitted.payloads))
	}

	// The sparse delta must be smaller than a full resend.
	full := NewList("Slots", func() []string { return items })
	var fullEmit recorder
	if err := full.DetectChanges(&fullEmit); err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(emitted.payloads[0]) >= len(fullEmit.payloads[0]) {
		t.Errorf("sparse delta %d bytes not smaller than full %d bytes",
			len(emitted.payloads[0]), len(fullEmit.payloads[0]))
	}

	if err := target.ApplyDelta(emitted.payloads[0]); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if !slices.Equal(target.Items(), items) {
		t.Errorf("target = %v, want %v", target.Items(), items)
	}
}

func TestListShrinkAndGrow(t *testing.T) {
	t.Parallel()
	items := []string{"a", "b", "c"}
	source := NewList("Slots", func() []string { return items })
	target := NewList("Slots", nil)
	mirror(t, source, target)

	items = []string{"a"}
	mirror(t, source, target)
	if !slices.Equal(target.Items(), []string{"a"}) {
		t.Fatalf("after shrink: %v", target.Items())
	}

	items = []string{"a", "x", "", "z"}
	mirror(t, source, target)
	if !slices.Equal(target.Items(), items) {
		t.Errorf("after grow: %v, want %v", target.Items(), items)
	}
}

func TestApplyDeltaRejectsMalformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		widget  Widget
		payload []byte
	}{
		{name: "text from integer", widget: NewText(nil), payload: []byte{0x18, 0x2a}},
		{name: "truncated", widget: NewText(nil), payload: []byte{0x65, 'a'}},
		{name: "label", widget: NewLabel("Title"), payload: []byte{0x60}},
		{name: "list index out of range", widget: NewList("Slots", nil),
			// {"length": 1, "changed": {5: "x"}}
			payload: []byte{0xa2, 0x66, 'l', 'e', 'n', 'g', 't', 'h', 0x01, 0x67, 'c', 'h', 'a', 'n', 'g', 'e', 'd', 0xa1, 0x05, 0x61, 'x'}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			err := test.widget.ApplyDelta(test.payload)
			if !errors.Is(err, ErrMalformedDelta) {
				t.Errorf("ApplyDelta err = %v, want ErrMalformedDelta", err)
			}
		})
	}
}

func TestLabelIsStatic(t *testing.T) {
	t.Parallel()
	label := NewLabel("Electric Furnace")
	var emitted recorder
	if err := label.DetectChanges(&emitted); err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(emitted.payloads) != 0 {
		t.Error("label emitted a delta")
	}
	if label.String() != "Electric Furnace" || label.Kind() != "label" {
		t.Errorf("label = %q (%s)", label.String(), label.Kind())
	}
}
