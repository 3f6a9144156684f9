// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes stored generation history to files.
//
// # Key Types
//
//   - Exporter: Converts a list of generations to one format
//   - Options: Output directory, metadata and HTML theme
//
// # Supported Formats
//
//   - JSON: Machine-readable, same shape as "emojify history --json"
//   - Markdown: One section per generation with ratings and explanations
//   - HTML: Self-contained page for a browser
//
// # Usage
//
//	exporter, err := export.ForFormat("md", nil)
//	path, err := export.ExportToFile(generations, exporter, nil)
package export
