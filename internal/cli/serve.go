// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - The serve command: HTTP API with config hot reload.

package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Elephant333/emojify/internal/config"
	"github.com/Elephant333/emojify/internal/server"
)

// shutdownTimeout bounds graceful shutdown after ctx is cancelled.
const shutdownTimeout = 5 * time.Second

// NewServer builds the HTTP server for app. port overrides the configured
// port when positive.
func NewServer(app *App, port int) *server.Server {
	cfg := app.Config
	addr := cfg.ServerAddr()
	if port > 0 {
		addr = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port))
	}

	srv := server.New(app.Engine, server.Config{
		Addr:               addr,
		BearerToken:        cfg.Server.BearerToken,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}).WithMetrics(app.Telemetry)
	if app.Store != nil {
		srv.WithStore(app.Store)
	}
	if app.Ollama != nil {
		srv.WithHealthCheck("ollama", app.Ollama.Ping)
	}
	srv.SetDefaults(app.GenerationDefaults())
	return srv
}

// applyReload pushes a reloaded config into the running engine and server.
// Backend, storage and listener settings need a restart.
func applyReload(app *App, srv *server.Server, cfg *config.Config) {
	defaults, err := cfg.GenerationDefaults()
	if err != nil {
		log.Printf("CONFIG_RELOAD_SKIPPED | err=%v", err)
		return
	}
	srv.SetDefaults(defaults)
	app.Engine.SetModel(cfg.Backend.Model)
	log.Printf("CONFIG_APPLIED | model=%s density=%s tone=%s", cfg.Backend.Model, defaults.Density, defaults.Tone.Label())
}

// HandleServe runs the HTTP API until ctx is cancelled.
func HandleServe(ctx context.Context, app *App, args Args) error {
	p := NewArgParser(args.Raw)
	port := 0
	if raw := p.Flag("port"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 65535 {
			return &ValidationError{Field: "port", Value: raw, Reason: "must be 1-65535", Example: "--port 8787"}
		}
		port = n
	}

	srv := NewServer(app, port)

	if path, err := config.ConfigPath(); err == nil {
		go func() {
			err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
				if err != nil {
					return
				}
				applyReload(app, srv, cfg)
			})
			if err != nil {
				log.Printf("CONFIG_WATCH_DISABLED | err=%v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	fmt.Fprintf(app.Err, "%s http://%s\n", SuccessStyle.Render("Listening on"), srv.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapError(err, "shutdown failed")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
