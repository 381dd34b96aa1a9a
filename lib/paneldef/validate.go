// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package paneldef

import (
	"fmt"
	"slices"
)

// Validate checks a Panel for structural issues. Returns a list of
// human-readable issue descriptions; an empty list means the panel is
// valid.
//
// Structural checks:
//   - Title is required
//   - At least one widget is required
//   - Kind must be one of Kinds
//   - Label widgets need Text and must not Bind
//   - Every other kind needs Bind
//   - Unit is only valid on number widgets
//   - MinTier must not be negative
func Validate(panel *Panel) []string {
	var issues []string

	if panel.Title == "" {
		issues = append(issues, "panel has no title")
	}
	if len(panel.Widgets) == 0 {
		issues = append(issues, "panel has no widgets (at least one widget is required)")
	}

	for index, w := range panel.Widgets {
		prefix := fmt.Sprintf("widgets[%d]", index)
		if !slices.Contains(Kinds, w.Kind) {
			issues = append(issues, fmt.Sprintf("%s: unknown kind %q (expected one of %v)", prefix, w.Kind, Kinds))
			continue
		}
		if w.Kind == "label" {
			if w.Text == "" {
				issues = append(issues, prefix+": label widget needs text")
			}
			if w.Bind != "" {
				issues = append(issues, fmt.Sprintf("%s: label widget cannot bind %q", prefix, w.Bind))
			}
		} else if w.Bind == "" {
			issues = append(issues, fmt.Sprintf("%s: %s widget needs a bind", prefix, w.Kind))
		}
		if w.Unit != "" && w.Kind != "number" {
			issues = append(issues, fmt.Sprintf("%s: unit is only valid on number widgets", prefix))
		}
		if w.MinTier < 0 {
			issues = append(issues, fmt.Sprintf("%s: min_tier %d is negative", prefix, w.MinTier))
		}
	}
	return issues
}
