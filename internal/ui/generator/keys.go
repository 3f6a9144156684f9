// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generator

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the generator screen.
type KeyMap struct {
	Submit       key.Binding
	NextMode     key.Binding
	PrevMode     key.Binding
	CycleDensity key.Binding
	CycleTone    key.Binding
	ToggleFocus  key.Binding
	FocusInput   key.Binding
	Up           key.Binding
	Down         key.Binding
	Explain      key.Binding
	Copy         key.Binding
	ThumbsUp     key.Binding
	ThumbsDown   key.Binding
	Help         key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "generate"),
		),
		NextMode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next mode"),
		),
		PrevMode: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "previous mode"),
		),
		CycleDensity: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "density"),
		),
		CycleTone: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "tone"),
		),
		ToggleFocus: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "switch focus"),
		),
		FocusInput: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "edit text"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous variant"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next variant"),
		),
		Explain: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "explain"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy"),
		),
		ThumbsUp: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "good"),
		),
		ThumbsDown: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "bad"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the one-line help.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextMode, k.ToggleFocus, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the expanded help, one column per
// focus area.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.NextMode, k.PrevMode, k.CycleDensity, k.CycleTone},
		{k.Up, k.Down, k.Explain, k.Copy, k.ThumbsUp, k.ThumbsDown},
		{k.ToggleFocus, k.FocusInput, k.Help, k.Quit},
	}
}
