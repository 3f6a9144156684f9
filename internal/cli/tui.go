// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/ui/generator"
)

// HandleTUI runs the full-screen generator. An optional first argument
// picks the starting mode, as in "emojify tui search".
func HandleTUI(ctx context.Context, app *App, args Args) error {
	if err := RequiresTTY("start the TUI"); err != nil {
		return err
	}

	opts, err := tuiOptions(app, args)
	if err != nil {
		return err
	}

	m := generator.New(ctx, app.Engine, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}

func tuiOptions(app *App, args Args) (generator.Options, error) {
	opts := generator.Options{
		Config:    app.GenerationDefaults(),
		Mode:      model.ModeEmojify,
		Clipboard: copyToClipboard,
		Provider:  app.provider,
	}
	if len(args.Raw) > 0 {
		mode, err := model.ParseMode(args.Raw[0])
		if err != nil {
			return opts, &UsageError{
				Command: "tui",
				Usage:   "[add|translate|search|analyze]",
				Hint:    fmt.Sprintf(" (unknown mode %q)", args.Raw[0]),
			}
		}
		opts.Mode = mode
	}
	// A nil *storage.Store must not become a non-nil interface.
	if app.Store != nil {
		opts.Store = app.Store
	}
	return opts, nil
}
