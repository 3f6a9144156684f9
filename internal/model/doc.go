// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the domain types shared by the generation engine,
// its backends, and every presentation surface.
//
// # Key Types
//
//   - Mode: Which transformation to run (emojify, translate, search, analyze)
//   - Density: Emoji density axis, mapped from slider steps 0..40
//   - Tone: Preset or custom tone axis
//   - Config: Density plus tone
//   - Request: Source text, mode and configuration for one generation
//   - Message: Role-tagged instruction sent to a backend
//   - Variant: One generated alternative (text, or emoji + name for search)
//   - ModelInfo: Metadata about chat models the backends can serve
//
// # Usage
//
//	density, _ := model.DensityFromStep(30)
//	req := model.Request{
//	    Source: "see you tonight",
//	    Mode:   model.ModeEmojify,
//	    Config: model.Config{Density: density, Tone: model.ParseTone("happy")},
//	}
//	if err := req.Validate(); err != nil {
//	    return err
//	}
package model
