// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generator

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/storage"
	"github.com/Elephant333/emojify/internal/ui/components"
	"github.com/Elephant333/emojify/internal/ui/styles"
)

// FeedbackStore saves thumbs ratings. *storage.Store implements it.
type FeedbackStore interface {
	SetFeedback(ctx context.Context, id string, index int, rating storage.Rating) error
}

// Options configures a Model. Every field is optional.
type Options struct {
	// Config is the initial density and tone.
	Config model.Config

	// Mode is the initial mode.
	Mode model.Mode

	// Store receives thumbs feedback. Rating keys are disabled when nil.
	Store FeedbackStore

	// Clipboard writes text to the system clipboard. Copy is disabled when nil.
	Clipboard func(string) error

	// Provider reports the backend that served the last call.
	Provider func() string
}

// focusArea is the part of the screen receiving keys.
type focusArea int

const (
	focusInput focusArea = iota
	focusResults
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the generator screen.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	engine  *engine.Engine
	opts    Options
	updates <-chan engine.Snapshot
	unsub   func()

	theme     *styles.Theme
	keys      KeyMap
	input     textinput.Model
	spinner   components.Spinner
	spinning  spinnerKind
	statusBar *components.StatusBar
	help      help.Model

	// Next request settings
	mode   model.Mode
	config model.Config

	// Latest engine state
	snap engine.Snapshot

	// Results interaction
	focus    focusArea
	selected int // 0-based
	ratings  map[int]storage.Rating
	ratedFor string // record the ratings belong to

	notice   string
	errText  string
	showHelp bool

	width  int
	height int
}

// New creates the generator screen around eng. Call Close when the program
// has exited.
func New(ctx context.Context, eng *engine.Engine, opts Options) Model {
	ctx, cancel := context.WithCancel(ctx)
	updates, unsub := eng.Subscribe()

	cfg := opts.Config
	if cfg.Validate() != nil {
		cfg = model.DefaultConfig()
	}
	mode := opts.Mode
	if !mode.Valid() {
		mode = model.ModeEmojify
	}

	theme := styles.NewTheme()

	ti := textinput.New()
	ti.Placeholder = placeholderFor(mode)
	ti.Prompt = ""
	ti.CharLimit = 0
	ti.Focus()

	spin := components.NewSpinner("Generating")
	spin.SetStyle(components.SpinnerEmoji)

	bar := components.NewStatusBar(theme)
	bar.SetConfig(cfg)
	bar.ModelName = eng.Model()

	return Model{
		ctx:       ctx,
		cancel:    cancel,
		engine:    eng,
		opts:      opts,
		updates:   updates,
		unsub:     unsub,
		theme:     theme,
		keys:      DefaultKeyMap(),
		input:     ti,
		spinner:   spin,
		statusBar: bar,
		help:      help.New(),
		mode:      mode,
		config:    cfg,
		snap:      eng.Snapshot(),
		ratings:   map[int]storage.Rating{},
		width:     80,
		height:    24,
	}
}

// Init starts the cursor blink and the snapshot subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForSnapshot(m.updates))
}

// Close ends the snapshot subscription and cancels in-flight calls.
func (m Model) Close() {
	m.cancel()
	m.unsub()
}

// Mode returns the mode of the next request.
func (m Model) Mode() model.Mode {
	return m.mode
}

// Config returns the density and tone of the next request.
func (m Model) Config() model.Config {
	return m.config
}

// Selected returns the 0-based selected variant.
func (m Model) Selected() int {
	return m.selected
}

func placeholderFor(mode model.Mode) string {
	switch mode {
	case model.ModeTranslate:
		return "Text to turn into pure emoji"
	case model.ModeSearch:
		return "Describe the emoji you want"
	case model.ModeAnalyze:
		return "Paste a message that has emoji in it"
	default:
		return "Type a message to add emoji to"
	}
}

// modeLabel is the tab title for a mode.
func modeLabel(mode model.Mode) string {
	switch mode {
	case model.ModeTranslate:
		return "Translate"
	case model.ModeSearch:
		return "Search"
	case model.ModeAnalyze:
		return "Analyze"
	default:
		return "Add emoji"
	}
}
