// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine orchestrates variant generation and per-variant explanation
// against an injected chat backend.
//
// The engine owns two pieces of observable state:
//
//   - RequestState: idle, loading, success (with variants) or error
//   - Explanations: per-variant-index none, pending, text or failed
//
// Both change only through the transition methods in state.go. Every
// generation gets a monotonically increasing request id, and a completion
// whose id is no longer the latest is discarded instead of overwriting newer
// state. Explanations are tracked the same way per index, and a successful
// generation resets them all.
//
// # Key Types
//
//   - Engine: Generate and Explain entry points plus Snapshot/Subscribe
//   - Result: Variants with the request and history ids of one GenerateResult call
//   - Backend: The injected "complete these messages" capability
//   - ValidationError: Input rejected before any backend call
//   - GenerationError: Backend failure or invalid reply
//
// # Usage
//
//	eng, err := engine.New(backend, engine.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	variants, err := eng.Generate(ctx, model.Request{
//	    Source: "good morning",
//	    Mode:   model.ModeTranslate,
//	})
//	if err != nil {
//	    fmt.Println(engine.UserMessage(err))
//	    return err
//	}
//	text, err := eng.Explain(ctx, 0, variants[0].Text, "good morning")
package engine
