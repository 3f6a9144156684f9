// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/ui/styles"
	"github.com/Elephant333/emojify/internal/util"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is what the TUI is doing right now.
type Status int

const (
	StatusReady Status = iota
	StatusGenerating
	StatusExplaining
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusGenerating:
		return "Generating"
	case StatusExplaining:
		return "Explaining"
	case StatusError:
		return "Error"
	default:
		return "Ready"
	}
}

// Icon returns a shape marker for the status, readable without color.
func (s Status) Icon() string {
	switch s {
	case StatusGenerating, StatusExplaining:
		return styles.StatusIndicators.Pending
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return styles.StatusIndicators.Success
	}
}

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar is the bottom line: status, density, tone, model and shortcuts.
type StatusBar struct {
	Status        Status
	Density       model.Density
	Tone          model.Tone
	ModelName     string
	Provider      string // backend that served the last call, if known
	Width         int
	ShowShortcuts bool
	theme         *styles.Theme
}

// NewStatusBar creates a StatusBar with default settings.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status:        StatusReady,
		Density:       model.DensityDefault,
		Tone:          model.DefaultTone,
		Width:         80,
		ShowShortcuts: true,
		theme:         theme,
	}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetConfig shows the density and tone of the next generation.
func (s *StatusBar) SetConfig(cfg model.Config) {
	s.Density = cfg.Density
	s.Tone = cfg.Tone
}

// View renders the status bar for the current width.
func (s *StatusBar) View() string {
	status := s.statusStyle().Render(s.Status.Icon() + " " + s.Status.String())
	sep := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")

	parts := []string{status}
	if s.Width < 60 {
		parts = append(parts, s.Density.String(), util.TruncateWidth(s.Tone.Label(), 10))
	} else {
		parts = append(parts,
			s.field("density", s.Density.String()),
			s.field("tone", s.Tone.Label()),
			s.field("model", s.modelLabel()),
		)
		if s.Width >= 100 && s.ShowShortcuts {
			parts = append(parts, s.shortcuts())
		}
	}

	return s.theme.StatusBar.
		Width(s.Width).
		MaxHeight(1).
		Render(strings.Join(parts, sep))
}

func (s *StatusBar) field(label, value string) string {
	return s.theme.StatusLabel.Render(label+" ") + s.theme.StatusValue.Render(value)
}

func (s *StatusBar) modelLabel() string {
	name := s.ModelName
	if name == "" {
		name = "?"
	}
	if s.Provider != "" {
		name += " via " + s.Provider
	}
	return name
}

func (s *StatusBar) shortcuts() string {
	keys := [][2]string{{"tab", "mode"}, {"^d", "density"}, {"^t", "tone"}, {"?", "help"}}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.theme.ShortcutKey.Render(k[0])+" "+s.theme.ShortcutDesc.Render(k[1]))
	}
	return strings.Join(out, "  ")
}

func (s *StatusBar) statusStyle() lipgloss.Style {
	switch s.Status {
	case StatusGenerating, StatusExplaining:
		return lipgloss.NewStyle().Foreground(styles.Amber)
	case StatusError:
		return lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(styles.Emerald)
	}
}
