// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the panel view.
type KeyMap struct {
	// CloseUI asks the server to close the presented session.
	CloseUI key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	CloseUI: key.NewBinding(
		key.WithKeys("c", "esc"),
		key.WithHelp("c", "close UI"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// helpLine renders the bindings as "key action" pairs.
func (keys KeyMap) helpLine() string {
	var line string
	for index, binding := range []key.Binding{keys.CloseUI, keys.Quit} {
		if index > 0 {
			line += "  "
		}
		help := binding.Help()
		line += help.Key + " " + help.Desc
	}
	return line
}
