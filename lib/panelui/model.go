// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// barWidth is the cell width of progress bars.
const barWidth = 24

// ConnectionLost tells the model the client stopped. Err is nil when
// the server hung up cleanly.
type ConnectionLost struct {
	Err error
}

// Model is the bubbletea model of the viewer: at most one presented
// panel, a status line, and the key help.
type Model struct {
	theme   Theme
	keys    KeyMap
	bar     progress.Model
	closeUI func()

	panel *Panel
	width int

	status      string
	statusLevel slog.Level
}

// NewModel creates a Model. closeUI is invoked when the close key is
// pressed while a panel is shown; it must not block.
func NewModel(closeUI func()) Model {
	theme := DefaultTheme
	bar := progress.New(
		progress.WithSolidFill(string(theme.BarFull)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(theme.BarEmpty)
	return Model{
		theme:   theme,
		keys:    DefaultKeyMap,
		bar:     bar,
		closeUI: closeUI,
		status:  "waiting for a UI",
	}
}

// Panel returns the displayed panel, or nil.
func (model Model) Panel() *Panel { return model.panel }

func (model Model) Init() tea.Cmd { return nil }

func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit
		case key.Matches(message, model.keys.CloseUI):
			if model.panel != nil && model.closeUI != nil {
				model.closeUI()
			}
		}

	case presentMsg:
		panel := message.Panel
		model.panel = &panel
		model.setStatus("", slog.LevelInfo)

	case refreshMsg:
		if model.panel != nil && model.panel.Session == message.Session {
			model.panel.replace(message.Row)
		}

	case dismissMsg:
		if model.panel != nil && model.panel.Session == message.Session {
			model.panel = nil
			model.setStatus(fmt.Sprintf("UI %d closed: %s", message.Session, message.Reason), slog.LevelInfo)
		}

	case ConnectionLost:
		model.panel = nil
		if message.Err != nil {
			model.setStatus("connection lost: "+message.Err.Error(), slog.LevelError)
		} else {
			model.setStatus("server closed the connection", slog.LevelWarn)
		}

	case logRecordMsg:
		model.setStatus(message.Summary, message.Level)
	}
	return model, nil
}

func (model *Model) setStatus(status string, level slog.Level) {
	model.status = status
	model.statusLevel = level
}

func (model Model) View() string {
	var lines []string

	if model.panel != nil {
		header := lipgloss.NewStyle().
			Bold(true).
			Foreground(model.theme.HeaderForeground).
			Render(model.panel.Title)
		lines = append(lines, header, model.rule())
		textStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)
		for _, row := range model.panel.Rows {
			if row.Bar {
				lines = append(lines, textStyle.Render(row.Label+" ")+model.bar.ViewAs(row.Fraction)+
					textStyle.Render(" "+strings.TrimPrefix(row.Text, row.Label+": ")))
				continue
			}
			lines = append(lines, textStyle.Render(row.Text))
		}
		lines = append(lines, model.rule())
	}

	if model.status != "" {
		color := model.theme.FaintText
		switch {
		case model.statusLevel >= slog.LevelError:
			color = model.theme.ErrorText
		case model.statusLevel >= slog.LevelWarn:
			color = model.theme.WarnText
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(color).Render(model.status))
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(model.keys.helpLine()))

	if model.width > 0 {
		for index, line := range lines {
			lines[index] = ansi.Truncate(line, model.width, "…")
		}
	}
	return strings.Join(lines, "\n")
}

func (model Model) rule() string {
	width := model.width
	if width <= 0 || width > 48 {
		width = 48
	}
	return lipgloss.NewStyle().Foreground(model.theme.BorderColor).Render(strings.Repeat("─", width))
}
