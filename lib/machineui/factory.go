// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package machineui

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/bureau-foundation/modularui/factory"
	"github.com/bureau-foundation/modularui/lib/paneldef"
	"github.com/bureau-foundation/modularui/template"
	"github.com/bureau-foundation/modularui/widget"
)

// FactoryName is the registry name of the machine factory.
const FactoryName = "machine"

//go:embed panel.jsonc
var defaultPanel []byte

// DefaultPanel returns the built-in panel definition.
func DefaultPanel() *paneldef.Panel {
	panel, err := paneldef.Parse(defaultPanel)
	if err != nil {
		panic("machineui: embedded panel: " + err.Error())
	}
	return panel
}

// bindings maps each bind name to the widget kinds that can render it.
var bindings = map[string][]string{
	"name":      {"text"},
	"status":    {"text"},
	"running":   {"toggle"},
	"progress":  {"progress"},
	"energy":    {"progress", "number"},
	"completed": {"number"},
	"tier":      {"number"},
	"output":    {"list"},
}

// NewFactory builds a machine factory from panel. The panel is
// validated, including every bind, so template builds cannot fail on
// layout errors later.
func NewFactory(panel *paneldef.Panel) (factory.Factory, error) {
	issues := paneldef.Validate(panel)
	for index, w := range panel.Widgets {
		if w.Kind == "label" || w.Bind == "" {
			continue
		}
		kinds, known := bindings[w.Bind]
		if !known {
			issues = append(issues, fmt.Sprintf("widgets[%d]: unknown bind %q", index, w.Bind))
			continue
		}
		supported := false
		for _, kind := range kinds {
			supported = supported || kind == w.Kind
		}
		if !supported {
			issues = append(issues, fmt.Sprintf("widgets[%d]: bind %q cannot be shown as %s (use %s)",
				index, w.Bind, w.Kind, strings.Join(kinds, " or ")))
		}
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("invalid machine panel:\n  %s", strings.Join(issues, "\n  "))
	}
	return factory.New(FactoryName, Codec, func(m *Machine, viewer factory.Viewer) (*template.Template, error) {
		return build(panel, m, viewer), nil
	}), nil
}

// build is a pure function of the panel, the holder fields carried by
// Codec, and the viewer.
func build(panel *paneldef.Panel, m *Machine, viewer factory.Viewer) *template.Template {
	viewerName := viewer.Name
	if viewerName == "" {
		viewerName = viewer.ID
	}
	tmpl := template.New(paneldef.Expand(panel.Title, m.Name, viewerName))
	for _, entry := range panel.Widgets {
		if m.Tier < entry.MinTier {
			continue
		}
		tmpl.Add(newWidget(entry, m, viewerName))
	}
	return tmpl
}

func newWidget(entry paneldef.Widget, m *Machine, viewerName string) widget.Widget {
	label := entry.Label
	if entry.Kind == "label" {
		return widget.NewLabel(paneldef.Expand(entry.Text, m.Name, viewerName))
	}
	switch entry.Bind {
	case "name":
		return widget.NewText(func() string { return m.Name })
	case "status":
		return widget.NewText(func() string { return m.Status })
	case "running":
		return widget.NewToggle(label, func() bool { return m.Running })
	case "progress":
		return widget.NewProgress(label, func() widget.ProgressValue {
			return widget.ProgressValue{Current: m.Progress, Maximum: m.Duration}
		})
	case "energy":
		if entry.Kind == "number" {
			return widget.NewNumber(label, entry.Unit, func() int64 { return m.Energy })
		}
		return widget.NewProgress(label, func() widget.ProgressValue {
			return widget.ProgressValue{Current: m.Energy, Maximum: m.Capacity}
		})
	case "completed":
		return widget.NewNumber(label, entry.Unit, func() int64 { return m.Completed })
	case "tier":
		return widget.NewNumber(label, entry.Unit, func() int64 { return int64(m.Tier) })
	case "output":
		return widget.NewList(label, func() []string { return m.Produced })
	}
	// NewFactory rejected every other bind.
	panic(fmt.Sprintf("machineui: unhandled bind %q", entry.Bind))
}

// Default returns a factory for the built-in panel.
func Default() factory.Factory {
	f, err := NewFactory(DefaultPanel())
	if err != nil {
		panic("machineui: " + err.Error())
	}
	return f
}
