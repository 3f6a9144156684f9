// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for emojify.
//
// Configuration lives in a TOML file with sensible defaults, .env and
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Provider selection and cloud API settings
//   - GenerationConfig: Default density and tone
//   - LimitsConfig: Backend rate limit and circuit breaker tuning
//   - ValidateErrors: Every invalid field found by Validate
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (EMOJIFY_*, OPENAI_API_KEY)
//   - ./.env (never overrides variables already set)
//   - ~/.emojify/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Edit by dotted key, as `emojify config set` does:
//
//	if err := cfg.Set("generation.density", "more"); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	err = config.Save(cfg)
//
// Hot-reload while serving:
//
//	config.Watch(ctx, path, func(cfg *config.Config, err error) { ... })
package config
