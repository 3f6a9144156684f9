// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generator

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/storage"
)

// =============================================================================
// ENGINE MESSAGES
// =============================================================================

// snapshotMsg carries the engine state after a change. closed is set once
// the subscription has ended.
type snapshotMsg struct {
	snap   engine.Snapshot
	closed bool
}

// generateDoneMsg reports how a Generate call returned. Success and backend
// failures also arrive as snapshots; only validation errors need this.
type generateDoneMsg struct {
	err error
}

// explainDoneMsg reports how an Explain call for a 0-based index returned.
type explainDoneMsg struct {
	index int
	err   error
}

// =============================================================================
// ACTION MESSAGES
// =============================================================================

// copiedMsg reports a clipboard write for 1-based variant n.
type copiedMsg struct {
	n   int
	err error
}

// ratedMsg reports stored feedback for 1-based variant n.
type ratedMsg struct {
	n      int
	rating storage.Rating
	err    error
}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForSnapshot blocks on the subscription until the next snapshot.
func waitForSnapshot(updates <-chan engine.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		return snapshotMsg{snap: snap, closed: !ok}
	}
}

func generateCmd(ctx context.Context, eng *engine.Engine, req model.Request) tea.Cmd {
	return func() tea.Msg {
		_, err := eng.Generate(ctx, req)
		return generateDoneMsg{err: err}
	}
}

func explainCmd(ctx context.Context, eng *engine.Engine, index int, text, source string) tea.Cmd {
	return func() tea.Msg {
		_, err := eng.Explain(ctx, index, text, source)
		return explainDoneMsg{index: index, err: err}
	}
}

func copyCmd(write func(string) error, n int, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{n: n, err: write(text)}
	}
}

func rateCmd(ctx context.Context, store FeedbackStore, recordID string, n int, rating storage.Rating) tea.Cmd {
	return func() tea.Msg {
		err := store.SetFeedback(ctx, recordID, n-1, rating)
		return ratedMsg{n: n, rating: rating, err: err}
	}
}
