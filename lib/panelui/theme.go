// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette for the panel view. Colors are ANSI 256
// codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	WarnText  lipgloss.Color
	ErrorText lipgloss.Color

	// BarFull and BarEmpty fill progress bars.
	BarFull  lipgloss.Color
	BarEmpty lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText:       lipgloss.Color("252"),
	FaintText:        lipgloss.Color("243"),
	HeaderForeground: lipgloss.Color("75"),
	BorderColor:      lipgloss.Color("238"),
	HelpText:         lipgloss.Color("241"),
	WarnText:         lipgloss.Color("214"),
	ErrorText:        lipgloss.Color("203"),
	BarFull:          lipgloss.Color("78"),
	BarEmpty:         lipgloss.Color("237"),
}
