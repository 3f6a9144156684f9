// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides an OpenAI-compatible chat completions client.
//
// Any server that speaks the /chat/completions protocol works: OpenAI itself,
// OpenRouter, or a local gateway. Requests are non-streaming; the engine
// needs the whole reply before it can parse variants.
//
// # Key Types
//
//   - Client: HTTP client with bearer auth, retries and a response size cap
//   - ChatRequest: request body for /chat/completions
//   - ClientError: typed failure mapped from HTTP status codes
//
// # Usage
//
//	client := cloud.NewClient(cloud.Config{APIKey: key})
//	text, err := client.Complete(ctx, []model.Message{
//	    model.NewSystemMessage("You help add emojies appropriately to text messages."),
//	    model.NewUserMessage("..."),
//	}, "gpt-3.5-turbo")
//
// API keys are never logged; use Client.KeyFingerprint to identify a key.
package cloud
