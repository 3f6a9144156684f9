// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and lipgloss styles of the emojify TUI.

All colors are lipgloss AdaptiveColor values, so the same theme reads on
light and dark terminals. Colored states also carry an ASCII marker
(StatusIndicators) so they remain readable without color.

# Key Types

  - Theme: Every style the TUI renders with, plus terminal capabilities
  - LayoutMode: Narrow, medium or wide, from the terminal width
  - StatusIndicatorSet: ASCII markers for success, error, pending and ratings

# Usage

	theme := styles.NewTheme()
	theme.SetSize(msg.Width, msg.Height)
	line := theme.VariantNumber.Render("1.") + theme.Variant.Render("good morning ☀️")
	if theme.GetLayoutMode() == styles.LayoutNarrow {
	    // drop the subtitle
	}
*/
package styles
