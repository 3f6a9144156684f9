// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router picks the language model backend for each call.
//
// A Router holds one or more routes in priority order. Provider "openai"
// uses only the cloud client, "ollama" only the local server, and "auto"
// tries the cloud first and falls back to the local server when the cloud
// call fails.
//
// # Key Types
//
//   - Router: implements engine.Backend over the configured routes
//   - Completer: what a route needs from a client
//   - Options: provider selection, pacing and breaker settings
//
// # Resilience
//
// Every route is paced by a token bucket limiter and wrapped in a circuit
// breaker. An open breaker fails fast, which lets "auto" move on to the
// next route without waiting for another timeout. Each call is traced
// with an OpenTelemetry span named "router.complete".
//
// # Usage
//
//	r, err := router.New(router.Options{Provider: router.ProviderAuto}, cloudClient, ollamaClient)
//	text, err := r.Complete(ctx, messages, "gpt-3.5-turbo")
package router
