// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the emojify packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile, AtomicWriteFileWithDir: crash-safe writes with fsync
//
// String Utilities:
//   - TruncateRunes: rune-safe truncation for log lines
//   - StringWidth, TruncateWidth, PadRight: terminal column aware layout
//
// # Usage
//
//	err := util.AtomicWriteFileWithDir(path, data, 0600, 0700)
//
//	fmt.Println(util.PadRight("1.", 4) + util.TruncateWidth(variant, 60))
package util
