// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the emojify engine over HTTP.
//
// # Endpoints
//
//   - POST /v1/generate      - Generate variants {text, mode, density, tone}
//   - POST /v1/explain       - Explain one variant {index, variant, source, mode}
//   - GET  /v1/state         - Current engine snapshot
//   - GET  /v1/events        - Websocket stream of engine snapshots
//   - GET  /v1/history       - Stored generations (?mode=&limit=)
//   - GET  /v1/history/{id}  - One generation with feedback and explanations
//   - POST /v1/feedback      - Thumbs up/down {id, index, rating}
//   - GET  /v1/metrics       - OpenTelemetry counters and histograms
//   - GET  /health           - Health check
//
// # Middleware
//
//   - Panic recovery, security headers and request logging
//   - Per-client token bucket rate limiting (golang.org/x/time/rate)
//   - Optional bearer token with constant-time comparison
//
// # Key Types
//
//   - Server: routes, middleware and lifecycle
//   - Config: listen address, bearer token and rate limit
//   - RateLimiter: per-IP token buckets
//
// # Usage
//
//	srv := server.New(eng, server.Config{Addr: cfg.ServerAddr(), BearerToken: token}).
//		WithStore(store).
//		WithMetrics(metrics)
//	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
//		log.Fatal(err)
//	}
package server
