// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/storage"
	"github.com/Elephant333/emojify/internal/telemetry"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8787"

	// MaxRequestBodySize bounds JSON request bodies (64KB).
	MaxRequestBodySize = 64 * 1024

	// Version is the API version reported by /health.
	Version = "1.0.0"
)

// ============================================================================
// SERVER
// ============================================================================

// HealthCheck probes a dependency; a nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Config configures a Server.
type Config struct {
	Addr string

	// BearerToken, when non-empty, is required on /v1 routes.
	BearerToken string

	// RateLimitPerMinute is the per-client request budget; zero disables it.
	RateLimitPerMinute int
}

// Server exposes one engine over HTTP and websockets.
type Server struct {
	cfg    Config
	engine *engine.Engine
	mux    *http.ServeMux
	server *http.Server

	limiter  *RateLimiter
	upgrader websocket.Upgrader
	started  time.Time

	mu       sync.RWMutex
	closed   bool
	store    *storage.Store
	metrics  *telemetry.Provider
	checks   map[string]HealthCheck
	defaults model.Config
}

// New creates a Server for eng.
func New(eng *engine.Engine, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	s := &Server{
		cfg:      cfg,
		engine:   eng,
		mux:      http.NewServeMux(),
		started:  time.Now(),
		checks:   make(map[string]HealthCheck),
		defaults: model.DefaultConfig(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOrigin,
		},
	}
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitPerMinute)
	}
	s.setupRoutes()
	return s
}

// WithStore enables the history and feedback routes.
func (s *Server) WithStore(store *storage.Store) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
	return s
}

// WithMetrics enables GET /v1/metrics.
func (s *Server) WithMetrics(p *telemetry.Provider) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = p
	return s
}

// WithHealthCheck adds a named dependency probe to /health.
func (s *Server) WithHealthCheck(name string, check HealthCheck) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
	return s
}

// SetDefaults replaces the density and tone used when a request omits them.
// Safe to call while serving, e.g. from a config reload.
func (s *Server) SetDefaults(cfg model.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults = cfg
}

func (s *Server) getDefaults() model.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

func (s *Server) getStore() *storage.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /v1/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /v1/explain", s.handleExplain)
	s.mux.HandleFunc("GET /v1/state", s.handleState)
	s.mux.HandleFunc("GET /v1/events", s.handleEvents)

	s.mux.HandleFunc("GET /v1/history", s.handleHistoryList)
	s.mux.HandleFunc("GET /v1/history/{id}", s.handleHistoryGet)
	s.mux.HandleFunc("POST /v1/feedback", s.handleFeedback)

	s.mux.HandleFunc("GET /v1/metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(s.limiter),
		AuthMiddleware(s.cfg.BearerToken),
	)(s.mux)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address. It blocks until Shutdown and
// then returns http.ErrServerClosed.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.server = srv
	s.mu.Unlock()

	log.Printf("SERVER_START | addr=%s version=%s auth=%t", s.cfg.Addr, Version, s.cfg.BearerToken != "")
	return srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("HTTP_ENCODE_FAILED | err=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// sameOrigin accepts websocket upgrades from non-browser clients and from
// pages served by the same host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
