// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt turns a generation request into the ordered messages sent to
// a chat backend.
//
// Every mode is described by one Strategy in a lookup table: its persona, its
// primary instruction, how many variants it must produce, which configuration
// axes it surfaces, and how a single variant is explained. Build and
// BuildExplanation are pure functions of their inputs.
//
// # Message Order
//
// Build always returns, in this order:
//
//  1. system: the mode persona
//  2. user: the primary instruction with the source text
//  3. user: the density directive (only when density is not default)
//  4. user: "Try to create a <tone> tone." (only when tone is not default)
//
// # Usage
//
//	msgs, err := prompt.Build(model.Request{
//	    Source: "running late, sorry",
//	    Mode:   model.ModeEmojify,
//	    Config: model.Config{Tone: model.SadTone},
//	})
package prompt
