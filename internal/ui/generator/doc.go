// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package generator provides the interactive emojify screen.

The screen is a single Bubble Tea model: a mode bar, a text input with a
length counter, the numbered variants of the last generation and the status
bar. All request state lives in the engine; the model subscribes to engine
snapshots and renders whatever the latest one says.

# Key Types

  - Model: Bubble Tea model for the generator screen
  - Options: Generation defaults, clipboard, feedback store and provider hook
  - KeyMap: Keyboard bindings, also used by the help view

# Usage

	m := generator.New(ctx, app.Engine, generator.Options{
		Config:    app.GenerationDefaults(),
		Store:     app.Store,
		Clipboard: clipboard.WriteAll,
	})
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()

# Keys

Input focus: enter generates, tab and shift+tab change mode, ctrl+d cycles
density, ctrl+t cycles tone, esc moves to the results.

Results focus: 1-9 explain that variant, up/down select, y copies, u and d
rate the selection, i or esc return to the input.
*/
package generator
