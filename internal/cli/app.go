// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Builds the engine and its collaborators from configuration.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/Elephant333/emojify/internal/cloud"
	"github.com/Elephant333/emojify/internal/config"
	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/offline"
	"github.com/Elephant333/emojify/internal/ollama"
	"github.com/Elephant333/emojify/internal/router"
	"github.com/Elephant333/emojify/internal/storage"
	"github.com/Elephant333/emojify/internal/telemetry"
)

// =============================================================================
// APP
// =============================================================================

// App is everything a command needs to generate, explain and record.
type App struct {
	Config    *config.Config
	Engine    *engine.Engine
	Store     *storage.Store // nil when history is off
	Telemetry *telemetry.Provider
	Router    *router.Router // nil when the backend was injected
	Ollama    *ollama.Client // nil when no local route is configured

	In  io.Reader
	Out io.Writer
	Err io.Writer

	JSON bool

	capture  *replyCapture
	shutdown []func(context.Context) error
}

// NewApp builds an App from cfg. A nil backend means "build the provider
// router from cfg"; tests pass a fake.
func NewApp(cfg *config.Config, args Args, backend engine.Backend) (*App, error) {
	app := &App{
		Config: cfg,
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		JSON:   args.JSON,
	}

	offline.SetOfflineMode(args.Offline)

	if args.Trace {
		stop, err := telemetry.InitTracing(app.Err)
		if err != nil {
			return nil, err
		}
		app.shutdown = append(app.shutdown, stop)
	}

	app.Telemetry = telemetry.NewProvider()
	app.shutdown = append(app.shutdown, app.Telemetry.Shutdown)
	metrics, err := telemetry.NewMetrics(app.Telemetry.MeterProvider())
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	if backend == nil {
		backend, err = app.buildRouter(metrics)
		if err != nil {
			app.Close()
			return nil, err
		}
	}
	app.capture = &replyCapture{next: backend}

	var history engine.History
	if cfg.Storage.Enabled && !args.NoHistory {
		store, err := storage.Open(storage.Config{Path: cfg.Storage.Path, MaxHistory: cfg.Storage.MaxHistory})
		if err != nil {
			log.Printf("HISTORY_OPEN_FAILED | path=%s err=%v", cfg.Storage.Path, err)
		} else {
			app.Store = store
			history = storage.NewHistorySink(store, app.provider)
		}
	}

	modelName := cfg.Backend.Model
	if args.Model != "" {
		modelName = args.Model
	}
	app.Engine, err = engine.New(app.capture, engine.Options{
		Model:          modelName,
		RequestTimeout: cfg.RequestTimeout(),
		ExplainTimeout: cfg.ExplainTimeout(),
		Recorder:       metrics,
		History:        history,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// buildRouter creates the cloud and local clients the configured provider
// needs and wraps them in a router.
func (a *App) buildRouter(metrics *telemetry.Metrics) (*router.Router, error) {
	cfg := a.Config
	var cloudClient, localClient router.Completer

	cloudAllowed := offline.CheckCloudAllowed()
	if cfg.Backend.Provider == config.ProviderOpenAI && cloudAllowed != nil {
		return nil, cloudAllowed
	}

	if cfg.Backend.Provider != config.ProviderOllama && cloudAllowed == nil {
		if cfg.Backend.BaseURL != "" {
			if err := offline.ValidateURL(cfg.Backend.BaseURL); err != nil {
				return nil, err
			}
		}
		cloudClient = cloud.NewClient(cloud.Config{
			APIKey:     cfg.Backend.APIKey,
			BaseURL:    cfg.Backend.BaseURL,
			Timeout:    cfg.RequestTimeout(),
			MaxRetries: cfg.Backend.MaxRetries,
		})
	}
	if cfg.Backend.Provider != config.ProviderOpenAI {
		if cfg.Ollama.URL != "" {
			if err := offline.ValidateURL(cfg.Ollama.URL); err != nil {
				return nil, err
			}
		}
		a.Ollama = ollama.NewClient(ollama.Config{
			BaseURL:      cfg.Ollama.URL,
			Timeout:      cfg.RequestTimeout(),
			DefaultModel: cfg.Ollama.Model,
		})
		localClient = a.Ollama
	}

	r, err := router.New(router.Options{
		Provider:          cfg.Backend.Provider,
		LocalModel:        cfg.Ollama.Model,
		RequestsPerSecond: cfg.Limits.RequestsPerSecond,
		Burst:             cfg.Limits.Burst,
		BreakerFailures:   uint32(cfg.Limits.BreakerFailures),
		BreakerCooldown:   cfg.BreakerCooldown(),
		Observer:          metrics,
	}, cloudClient, localClient)
	if err != nil {
		if errors.Is(err, router.ErrNoRoute) {
			return nil, fmt.Errorf("%w (set backend.api_key or EMOJIFY_API_KEY, or use provider ollama)", err)
		}
		return nil, err
	}
	a.Router = r
	return r, nil
}

// provider names the backend that served the last call.
func (a *App) provider() string {
	if a.Router == nil {
		return ""
	}
	return a.Router.LastProvider()
}

// LastReply returns the raw text of the most recent backend reply.
func (a *App) LastReply() string {
	return a.capture.Last()
}

// GenerationDefaults returns the configured density and tone.
func (a *App) GenerationDefaults() model.Config {
	defaults, err := a.Config.GenerationDefaults()
	if err != nil {
		return model.DefaultConfig()
	}
	return defaults
}

// Close releases the database and flushes telemetry.
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			log.Printf("HISTORY_CLOSE_FAILED | err=%v", err)
		}
		a.Store = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			log.Printf("TELEMETRY_SHUTDOWN_FAILED | err=%v", err)
		}
	}
	a.shutdown = nil
}

// =============================================================================
// REPLY CAPTURE
// =============================================================================

// replyCapture remembers the last raw reply for --raw.
type replyCapture struct {
	next engine.Backend

	mu   sync.Mutex
	last string
}

func (c *replyCapture) Complete(ctx context.Context, messages []model.Message, modelName string) (string, error) {
	reply, err := c.next.Complete(ctx, messages, modelName)
	if err == nil {
		c.mu.Lock()
		c.last = reply
		c.mu.Unlock()
	}
	return reply, err
}

func (c *replyCapture) Last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
