// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline restricts emojify to a local backend.
//
// When offline mode is on, cloud completions are refused and backend URLs
// must point at a loopback address. The URL scheme check (http or https)
// applies whether or not offline mode is on.
//
// # Key Functions
//
//   - SetOfflineMode / IsOfflineMode: Process-wide switch
//   - ValidateURL: Scheme check, plus loopback check when offline
//   - CheckCloudAllowed: Refuses cloud backends when offline
//
// # Usage
//
//	offline.SetOfflineMode(args.Offline)
//	if err := offline.ValidateURL(cfg.Ollama.URL); err != nil {
//	    return err
//	}
package offline
