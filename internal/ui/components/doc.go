// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable pieces of the emojify TUI.

# Key Types

  - Spinner: Loading indicator with an elapsed-time suffix
  - StatusBar: Bottom line with status, density, tone, model and shortcuts
  - Status: Ready, generating, explaining or error

# Usage

	spin := components.NewSpinner("Generating")
	cmd := spin.Start()
	// in Update:
	spin, cmd = spin.Update(msg)

	bar := components.NewStatusBar(theme)
	bar.SetWidth(width)
	bar.SetConfig(model.DefaultConfig())
	bar.Status = components.StatusGenerating
	footer := bar.View()
*/
package components
