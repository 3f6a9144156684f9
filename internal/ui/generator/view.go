// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generator

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/grapheme"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/storage"
	"github.com/Elephant333/emojify/internal/ui/styles"
	"github.com/Elephant333/emojify/internal/util"
)

// counterWarnAt is where the length counter turns amber.
const counterWarnAt = model.MaxSourceUnits * 9 / 10

// =============================================================================
// VIEW
// =============================================================================

// View renders the whole screen.
func (m Model) View() string {
	sections := []string{
		m.renderHeader(),
		m.renderInput(),
		m.renderMessages(),
		m.renderResults(),
	}
	if m.showHelp {
		sections = append(sections, m.help.FullHelpView(m.keys.FullHelp()))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, sections...)
	footer := m.statusBar.View()

	// Pin the status bar to the bottom when the body fits.
	gap := m.height - lipgloss.Height(body) - lipgloss.Height(footer)
	if gap > 0 {
		body += strings.Repeat("\n", gap)
	}
	return body + "\n" + footer
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("emojify")

	tabs := make([]string, 0, len(model.Modes()))
	for _, mode := range model.Modes() {
		label := modeLabel(mode)
		if mode == m.mode {
			tabs = append(tabs, m.theme.ModeTabActive.Render(label))
		} else {
			tabs = append(tabs, m.theme.ModeTab.Render(label))
		}
	}

	row := title + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		row = title + "  " + m.theme.ModeTabActive.Render(modeLabel(m.mode))
	}
	return m.theme.Header.Width(m.width).Render(row)
}

func (m Model) renderInput() string {
	container := m.theme.InputContainer
	if m.focus != focusInput {
		container = m.theme.InputContainerBlur
	}
	box := container.Width(max(m.width-2, 12)).Render(m.input.View())

	units := grapheme.SourceLen(m.input.Value())
	counter := fmt.Sprintf("%d/%d", units, model.MaxSourceUnits)
	switch {
	case units > model.MaxSourceUnits:
		counter = m.theme.CharCountDanger.Render(counter)
	case units >= counterWarnAt:
		counter = m.theme.CharCountWarning.Render(counter)
	default:
		counter = m.theme.CharCount.Render(counter)
	}
	return box + "\n" + lipgloss.PlaceHorizontal(max(m.width, 12), lipgloss.Right, counter)
}

// renderMessages shows the error line, or the last notice when there is no
// error.
func (m Model) renderMessages() string {
	errText := m.errText
	if errText == "" && m.snap.Request.Status == engine.StatusError {
		errText = engine.UserMessage(m.snap.Request.Err)
	}
	if errText != "" {
		return m.theme.ErrorLine.Render(styles.StatusIndicators.Error + " " + errText)
	}
	if m.notice != "" {
		return m.theme.NoticeLine.Render(m.notice)
	}
	return ""
}

func (m Model) renderResults() string {
	req := m.snap.Request
	switch req.Status {
	case engine.StatusLoading:
		return m.spinner.View()
	case engine.StatusSuccess:
	default:
		return m.theme.Muted.Render("Press enter to " + strings.ToLower(modeLabel(m.mode)) + ".")
	}

	width := max(m.width-6, 20)
	lines := make([]string, 0, len(req.Variants)*2)
	for i, v := range req.Variants {
		lines = append(lines, m.renderVariant(i, v, width))
		if exp := m.renderExplanation(i, width); exp != "" {
			lines = append(lines, exp)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderVariant(i int, v model.Variant, width int) string {
	number := m.theme.VariantNumber.Render(fmt.Sprintf("%d.", i+1))

	var text string
	if v.IsEmoji() {
		text = v.Emoji + "  " + m.theme.SearchName.Render(v.Name)
	} else {
		text = lipgloss.NewStyle().Width(width).Render(v.Text)
	}

	style := m.theme.Variant
	if i == m.selected && m.focus == focusResults {
		style = m.theme.VariantSelected
	}
	line := number + style.Render(text)

	switch m.ratings[i] {
	case storage.RatingUp:
		line += " " + m.theme.Rating.Render(styles.StatusIndicators.Up)
	case storage.RatingDown:
		line += " " + m.theme.Rating.Render(styles.StatusIndicators.Down)
	}
	return line
}

func (m Model) renderExplanation(i, width int) string {
	exp := m.snap.Explanations.Get(i)
	switch exp.Status {
	case engine.ExplanationPending:
		if m.spinner.IsActive() && m.spinning == spinnerExplaining {
			return "    " + m.spinner.View()
		}
		return m.theme.ExplanationPending.Render("Explaining...")
	case engine.ExplanationText:
		return m.theme.Explanation.Width(width).Render(exp.Text)
	case engine.ExplanationFailed:
		return m.theme.ErrorLine.PaddingLeft(4).Render(util.TruncateWidth(engine.UserMessage(exp.Err), width))
	default:
		return ""
	}
}
