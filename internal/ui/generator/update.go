// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generator

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/prompt"
	"github.com/Elephant333/emojify/internal/storage"
	"github.com/Elephant333/emojify/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.statusBar.SetWidth(msg.Width)
		m.input.Width = max(msg.Width-8, 10)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		if msg.closed {
			return m, nil
		}
		cmd := m.applySnapshot(msg.snap)
		return m, tea.Batch(cmd, waitForSnapshot(m.updates))

	case generateDoneMsg:
		return m.handleGenerateDone(msg), nil

	case explainDoneMsg:
		if msg.err != nil && engine.IsValidation(msg.err) {
			m.errText = engine.UserMessage(msg.err)
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.errText = "Copy failed: " + msg.err.Error()
		} else {
			m.notice = fmt.Sprintf("Copied #%d", msg.n)
		}
		return m, nil

	case ratedMsg:
		return m.handleRated(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// applySnapshot stores the latest engine state and drives the spinner and
// status bar from it.
func (m *Model) applySnapshot(snap engine.Snapshot) tea.Cmd {
	prev := m.snap.Request
	m.snap = snap
	req := snap.Request

	if req.RecordID != m.ratedFor {
		m.ratings = map[int]storage.Rating{}
		m.ratedFor = req.RecordID
	}
	if req.ID != prev.ID {
		m.selected = 0
	}

	if m.opts.Provider != nil {
		m.statusBar.Provider = m.opts.Provider()
	}
	m.statusBar.ModelName = m.engine.Model()

	var cmd tea.Cmd
	switch {
	case req.Status == engine.StatusLoading:
		m.statusBar.Status = components.StatusGenerating
		cmd = m.runSpinner(spinnerGenerating)
	case req.Status == engine.StatusError:
		m.spinner.Stop()
		m.statusBar.Status = components.StatusError
	case anyPending(snap.Explanations):
		m.statusBar.Status = components.StatusExplaining
		cmd = m.runSpinner(spinnerExplaining)
	default:
		m.spinner.Stop()
		m.statusBar.Status = components.StatusReady
	}

	if req.Status == engine.StatusSuccess && prev.Status != engine.StatusSuccess && m.focus == focusInput {
		m.setFocus(focusResults)
	}
	return cmd
}

// spinnerKind is what the spinner is currently animating.
type spinnerKind int

const (
	spinnerGenerating spinnerKind = iota
	spinnerExplaining
)

// runSpinner switches the spinner to kind, restarting it when it was idle
// or animating something else.
func (m *Model) runSpinner(kind spinnerKind) tea.Cmd {
	if m.spinner.IsActive() && m.spinning == kind {
		return nil
	}
	m.spinning = kind
	switch kind {
	case spinnerExplaining:
		m.spinner.SetStyle(components.SpinnerDots)
		m.spinner.SetMessage("Explaining")
		m.spinner.SetShowTimer(false)
	default:
		m.spinner.SetStyle(components.SpinnerEmoji)
		m.spinner.SetMessage("Generating")
		m.spinner.SetShowTimer(true)
	}
	if m.spinner.IsActive() {
		return nil
	}
	return m.spinner.Start()
}

func (m Model) handleGenerateDone(msg generateDoneMsg) Model {
	if msg.err == nil || errors.Is(msg.err, engine.ErrSuperseded) {
		return m
	}
	// Validation failures never reach the engine state, so they are only
	// visible here.
	if engine.IsValidation(msg.err) {
		m.errText = engine.UserMessage(msg.err)
	}
	return m
}

func (m Model) handleRated(msg ratedMsg) Model {
	if msg.err != nil {
		m.errText = "Feedback not saved: " + msg.err.Error()
		return m
	}
	if msg.rating == storage.RatingNone {
		delete(m.ratings, msg.n-1)
		m.notice = fmt.Sprintf("Cleared rating on #%d", msg.n)
	} else {
		m.ratings[msg.n-1] = msg.rating
		m.notice = fmt.Sprintf("Rated #%d %s", msg.n, msg.rating)
	}
	return m
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.ToggleFocus):
		if m.focus == focusInput {
			m.setFocus(focusResults)
		} else {
			m.setFocus(focusInput)
		}
		return m, nil
	case key.Matches(msg, m.keys.NextMode):
		m.setMode(m.shiftMode(1))
		return m, nil
	case key.Matches(msg, m.keys.PrevMode):
		m.setMode(m.shiftMode(-1))
		return m, nil
	case key.Matches(msg, m.keys.CycleDensity):
		m.config.Density = nextDensity(m.config.Density)
		m.statusBar.SetConfig(m.config)
		m.notice = "Density: " + m.config.Density.String()
		return m, nil
	case key.Matches(msg, m.keys.CycleTone):
		m.config.Tone = nextTone(m.config.Tone)
		m.statusBar.SetConfig(m.config)
		m.notice = "Tone: " + m.config.Tone.Label()
		return m, nil
	}

	if m.focus == focusResults {
		return m.handleResultsKey(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		return m, m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	variants := m.variants()

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.FocusInput), key.Matches(msg, m.keys.Submit):
		m.setFocus(focusInput)
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(variants)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Explain):
		n := int(msg.Runes[0] - '0')
		return m, m.explain(n - 1)
	case key.Matches(msg, m.keys.Copy):
		return m, m.copySelected()
	case key.Matches(msg, m.keys.ThumbsUp):
		return m, m.rate(storage.RatingUp)
	case key.Matches(msg, m.keys.ThumbsDown):
		return m, m.rate(storage.RatingDown)
	}
	return m, nil
}

// =============================================================================
// ACTIONS
// =============================================================================

// submit starts a generation for the input text. The engine validates the
// request; validation errors come back through generateDoneMsg.
func (m *Model) submit() tea.Cmd {
	m.errText = ""
	m.notice = ""
	req := model.Request{
		Mode:   m.mode,
		Source: m.input.Value(),
		Config: prompt.ScopeConfig(m.mode, m.config),
	}
	return generateCmd(m.ctx, m.engine, req)
}

// explain requests the explanation of 0-based variant index.
func (m *Model) explain(index int) tea.Cmd {
	m.errText = ""
	req := m.snap.Request
	if req.Status != engine.StatusSuccess {
		return nil
	}
	if index < 0 || index >= len(req.Variants) {
		m.errText = engine.UserMessage(engine.ErrBadIndex)
		return nil
	}
	if req.Mode != model.ModeEmojify && req.Mode != model.ModeTranslate {
		m.errText = engine.UserMessage(engine.ErrNoExplanation)
		return nil
	}
	if m.snap.Explanations.Get(index).Status == engine.ExplanationPending {
		return nil
	}
	m.selected = index
	return explainCmd(m.ctx, m.engine, index, req.Variants[index].Copyable(), req.Source)
}

func (m *Model) copySelected() tea.Cmd {
	variants := m.variants()
	if m.opts.Clipboard == nil || m.selected >= len(variants) {
		return nil
	}
	return copyCmd(m.opts.Clipboard, m.selected+1, variants[m.selected].Copyable())
}

// rate toggles rating on the selected variant. Rating the same way twice
// clears it.
func (m *Model) rate(rating storage.Rating) tea.Cmd {
	recordID := m.snap.Request.RecordID
	if m.opts.Store == nil || recordID == "" {
		m.errText = "Feedback needs history enabled"
		return nil
	}
	if m.selected >= len(m.variants()) {
		return nil
	}
	if m.ratings[m.selected] == rating {
		rating = storage.RatingNone
	}
	return rateCmd(m.ctx, m.opts.Store, recordID, m.selected+1, rating)
}

func (m *Model) setMode(mode model.Mode) {
	m.mode = mode
	m.input.Placeholder = placeholderFor(mode)
	m.errText = ""
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// variants returns the variants of a successful generation, or nil.
func (m Model) variants() []model.Variant {
	if m.snap.Request.Status != engine.StatusSuccess {
		return nil
	}
	return m.snap.Request.Variants
}

func (m Model) shiftMode(delta int) model.Mode {
	modes := model.Modes()
	for i, mode := range modes {
		if mode == m.mode {
			return modes[(i+delta+len(modes))%len(modes)]
		}
	}
	return modes[0]
}

func nextDensity(d model.Density) model.Density {
	next := d + 1
	if !next.Valid() {
		return model.DensityDefault
	}
	return next
}

// nextTone cycles through the presets. A custom tone goes back to default.
func nextTone(t model.Tone) model.Tone {
	switch t.Kind {
	case model.ToneDefault:
		return model.HappyTone
	case model.ToneHappy:
		return model.SadTone
	case model.ToneSad:
		return model.AngryTone
	default:
		return model.DefaultTone
	}
}

func anyPending(exps engine.Explanations) bool {
	for _, e := range exps {
		if e.Status == engine.ExplanationPending {
			return true
		}
	}
	return false
}
