// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package paneldef parses and validates panel definitions: the widget
// layout a factory builds for a holder, authored on disk as JSONC
// files (JSON extended with comments and trailing commas).
//
// A panel lists widgets in display order. Each widget names its kind
// and, for live widgets, the holder field it is bound to. Which
// bindings exist is up to the factory that consumes the panel; this
// package only checks structure.
//
// Titles and label text may reference ${NAME} and ${VIEWER}, expanded
// by [Expand] from the holder and viewer at build time.
package paneldef

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// Panel is a parsed panel definition.
type Panel struct {
	// Title is the template title.
	Title string `json:"title"`

	// Widgets in display order. Widget ids are assigned in this
	// order, skipping widgets excluded by MinTier.
	Widgets []Widget `json:"widgets"`
}

// Widget describes one widget of a panel.
type Widget struct {
	// Kind is one of the widget kinds in Kinds.
	Kind string `json:"kind"`

	// Label prefixes the rendered value ("Energy: 40 EU").
	Label string `json:"label,omitempty"`

	// Text is the static content of a label widget.
	Text string `json:"text,omitempty"`

	// Bind names the holder field a live widget reads.
	Bind string `json:"bind,omitempty"`

	// Unit is appended to number widgets.
	Unit string `json:"unit,omitempty"`

	// MinTier hides the widget on holders below this tier.
	MinTier int `json:"min_tier,omitempty"`
}

// Kinds lists the widget kinds a panel may use.
var Kinds = []string{"label", "text", "number", "toggle", "progress", "list"}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Panel. Unknown fields are rejected so a
// misspelled key does not silently drop a setting.
func Parse(data []byte) (*Panel, error) {
	stripped := jsonc.ToJSON(data)

	decoder := json.NewDecoder(bytes.NewReader(stripped))
	decoder.DisallowUnknownFields()
	var panel Panel
	if err := decoder.Decode(&panel); err != nil {
		return nil, fmt.Errorf("parsing panel: %w", err)
	}
	return &panel, nil
}

// ReadFile reads and parses a JSONC panel file.
func ReadFile(path string) (*Panel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	panel, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return panel, nil
}

// NameFromPath extracts a panel name from a file path by stripping the
// directory and extension: "panels/furnace.jsonc" returns "furnace".
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Expand substitutes ${NAME} and ${VIEWER} in text. Any other ${...}
// reference is left as is.
func Expand(text, name, viewer string) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return strings.NewReplacer("${NAME}", name, "${VIEWER}", viewer).Replace(text)
}
