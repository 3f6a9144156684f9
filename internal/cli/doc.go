// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands of
// emojify.
//
// Each command is a Handle* function taking an *App, which owns the engine,
// the provider router, the history store and telemetry. Under --json every
// command writes the same envelope: success, command, data, error and
// timestamp.
//
// # Key Types
//
//   - Command: Enumeration of the CLI commands
//   - Args: Global flags plus the raw arguments after the command name
//   - ArgParser: Flag and positional parsing shared by commands
//   - App: Engine, router, store and telemetry built from configuration
//   - ChatSession: State of one interactive chat session
//   - JSONResponse: The --json envelope
//
// # Usage
//
//	cmd, args := cli.Parse()
//	app, err := cli.NewApp(cfg, args, nil)
//	if err != nil {
//	    return err
//	}
//	defer app.Close()
//	switch cmd {
//	case cli.CmdGenerate:
//	    err = cli.HandleGenerate(ctx, app, args)
//	case cli.CmdHistory:
//	    err = cli.HandleHistory(ctx, app, args)
//	// ... other commands
//	}
//	cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
//	os.Exit(cli.GetExitCode(err))
//
// # Commands Overview
//
//   - add, translate, search, analyze: One generation, optionally explained or copied
//   - explain: Explain a variant of a stored generation
//   - chat: Line-edited interactive session with slash commands
//   - history, feedback: Browse and rate stored generations
//   - config: Show and edit ~/.emojify/config.toml
//   - serve: HTTP API with config hot reload
//   - doctor: Configuration and backend health checks
package cli
