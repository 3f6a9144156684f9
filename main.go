// emojify - Add emoji to text, translate text into emoji, search for emoji
// and analyze messages that use them.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Elephant333/emojify/internal/cli"
	"github.com/Elephant333/emojify/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	// Logs reach stderr only with --verbose.
	if !args.Verbose {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cmd, args)
	stop()

	if err != nil {
		cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

// run dispatches one command. Commands that never call a backend run
// without building the App.
func run(ctx context.Context, cmd cli.Command, args cli.Args) error {
	switch cmd {
	case cli.CmdVersion:
		return cli.OutputJSON(os.Stdout, args.JSON, cmd.String(), func() (interface{}, error) {
			if !args.JSON {
				cli.PrintVersion(os.Stdout)
			}
			return cli.VersionInfo(), nil
		})
	case cli.CmdHelp:
		cli.PrintUsage()
		return nil
	case cli.CmdConfig:
		return cli.HandleConfig(os.Stdout, args)
	case cli.CmdDoctor:
		return cli.HandleDoctor(ctx, os.Stdout, args.JSON)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	app, err := cli.NewApp(cfg, args, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd {
	case cli.CmdGenerate:
		return cli.HandleGenerate(ctx, app, args)
	case cli.CmdExplain:
		return cli.HandleExplain(ctx, app, args)
	case cli.CmdChat:
		return cli.HandleChat(ctx, app, args)
	case cli.CmdHistory:
		return cli.HandleHistory(ctx, app, args)
	case cli.CmdFeedback:
		return cli.HandleFeedback(ctx, app, args)
	case cli.CmdServe:
		return cli.HandleServe(ctx, app, args)
	default:
		return cli.HandleTUI(ctx, app, args)
	}
}
