// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for a local Ollama server.
//
// Only the non-streaming /api/chat endpoint is used for generation; the
// reply is requested in JSON format so local models keep to the numbered
// variant object.
//
// # Key Types
//
//   - Client: HTTP client for the Ollama API
//   - ChatRequest: request body for /api/chat
//   - ClientError: typed failure with an ErrorType
//
// # Usage
//
//	client := ollama.NewClient(ollama.Config{BaseURL: "http://127.0.0.1:11434"})
//	if err := client.Ping(ctx); err != nil {
//	    return err
//	}
//	text, err := client.Complete(ctx, messages, "llama3.2")
package ollama
