// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styles and renderers for emojify CLI output.

package cli

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/storage"
	"github.com/Elephant333/emojify/internal/util"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Width(20)

	// NumberStyle marks variant numbers
	NumberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	// SuccessStyle is used for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	// ErrorStyle is used for error messages and failures
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// WarningStyle is used for warnings and cautions
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle is used for secondary information and hints
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// SeparatorStyle is used for visual separators
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal rule, 60 columns unless given.
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("─", w))
}

// RenderLabel renders a label at a fixed width.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}

// RenderRating renders a thumbs rating.
func RenderRating(r storage.Rating) string {
	switch r {
	case storage.RatingUp:
		return SuccessStyle.Render("👍")
	case storage.RatingDown:
		return ErrorStyle.Render("👎")
	default:
		return ""
	}
}

// =============================================================================
// VARIANTS
// =============================================================================

// emojiColumn is the display width of the emoji column in search results.
const emojiColumn = 4

// WriteVariants writes numbered variants. Search results are aligned on
// display width so wide emoji do not push names out of line.
func WriteVariants(w io.Writer, mode model.Mode, variants []model.Variant) {
	for i, v := range variants {
		num := NumberStyle.Render(fmt.Sprintf("%d.", i+1))
		switch {
		case v.IsEmoji():
			fmt.Fprintf(w, "  %s %s %s\n", num, util.PadRight(v.Emoji, emojiColumn), v.Name)
		case mode == model.ModeAnalyze:
			fmt.Fprintf(w, "%s\n", RenderMarkdown(v.Text))
		default:
			fmt.Fprintf(w, "  %s %s\n", num, v.Text)
		}
	}
}

// RenderMarkdown renders explanation and analysis text for the terminal.
// Plain text is returned when colors are off or rendering fails.
func RenderMarkdown(text string) string {
	if !ColorsEnabled() {
		return util.Indent(WrapText(text, GetTerminalWidth()), "  ")
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// HighlightJSON returns raw with terminal syntax highlighting, or raw itself
// when colors are off.
func HighlightJSON(raw string) string {
	if !ColorsEnabled() {
		return raw
	}
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, raw, "json", "terminal256", "monokai"); err != nil {
		return raw
	}
	return buf.String()
}

// WrapText wraps text on word boundaries to maxWidth display columns.
func WrapText(text string, maxWidth int) string {
	if maxWidth > 10 {
		maxWidth -= 2
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteString("\n")
		}
		if util.StringWidth(line) <= maxWidth {
			result.WriteString(line)
			continue
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			if util.StringWidth(current)+1+util.StringWidth(word) <= maxWidth {
				current += " " + word
			} else {
				result.WriteString(current)
				result.WriteString("\n")
				current = word
			}
		}
		result.WriteString(current)
	}
	return result.String()
}
