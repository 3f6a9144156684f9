// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	ModeTab        lipgloss.Style
	ModeTabActive  lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputContainer     lipgloss.Style
	InputContainerBlur lipgloss.Style
	InputPrompt        lipgloss.Style
	CharCount          lipgloss.Style
	CharCountWarning   lipgloss.Style
	CharCountDanger    lipgloss.Style

	// ==========================================================================
	// RESULTS
	// ==========================================================================

	VariantNumber      lipgloss.Style
	Variant            lipgloss.Style
	VariantSelected    lipgloss.Style
	SearchName         lipgloss.Style
	Explanation        lipgloss.Style
	ExplanationPending lipgloss.Style
	Rating             lipgloss.Style
	Spinner            lipgloss.Style
	ThinkingText       lipgloss.Style
	ThinkingTime       lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	ErrorLine  lipgloss.Style
	NoticeLine lipgloss.Style
	Muted      lipgloss.Style

	// ==========================================================================
	// STATUS BAR AND HELP
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusLabel  lipgloss.Style
	StatusValue  lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.ModeTab = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ModeTabActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Purple).
		Padding(0, 1)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(0, 1)

	t.InputContainerBlur = t.InputContainer.
		BorderForeground(Overlay)

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.CharCount = lipgloss.NewStyle().Foreground(TextMuted)
	t.CharCountWarning = lipgloss.NewStyle().Foreground(Amber)
	t.CharCountDanger = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	// Results
	t.VariantNumber = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.Variant = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(1)

	t.VariantSelected = lipgloss.NewStyle().
		Foreground(Purple).
		Background(SurfaceBright).
		Bold(true).
		PaddingLeft(1)

	t.SearchName = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Explanation = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true).
		PaddingLeft(4)

	t.ExplanationPending = lipgloss.NewStyle().
		Foreground(Amber).
		PaddingLeft(4)

	t.Rating = lipgloss.NewStyle().Foreground(Emerald)

	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.ThinkingText = lipgloss.NewStyle().Foreground(TextSecondary)
	t.ThinkingTime = lipgloss.NewStyle().Foreground(TextMuted)

	// Messages
	t.ErrorLine = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.NoticeLine = lipgloss.NewStyle().
		Foreground(Emerald)

	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.StatusLabel = lipgloss.NewStyle().Foreground(TextMuted)
	t.StatusValue = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // >= 100 columns
)
