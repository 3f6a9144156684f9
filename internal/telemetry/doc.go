// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides OpenTelemetry metrics and tracing for emojify.
//
// Metrics implements engine.Recorder and router.CallObserver, so wiring it
// into both records every generation, explanation and backend attempt.
//
// # Key Types
//
//   - Metrics: the emojify.* instruments
//   - Provider: an in-process meter provider whose data can be read back
//     with Snapshot, used by the HTTP server's /v1/metrics endpoint
//
// # Usage
//
//	provider := telemetry.NewProvider()
//	metrics, err := telemetry.NewMetrics(provider.MeterProvider())
//	eng, err := engine.New(backend, engine.Options{Recorder: metrics})
//	...
//	series, err := provider.Snapshot(ctx)
//
// # Privacy
//
// Metrics carry mode, outcome and provider labels only. Message text is
// never recorded.
package telemetry
