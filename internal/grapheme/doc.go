// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package grapheme provides user-perceived character handling for emoji text.
//
// Emoji are frequently built from several code points: skin-tone modifiers,
// zero-width-joiner sequences, regional indicator flags and variation
// selectors. Everything in this package counts and cuts at grapheme cluster
// boundaries so a multi-code-point emoji is always kept whole.
//
// # Key Functions
//
//   - Truncate: Keep the first N grapheme clusters of a string
//   - Count: Number of grapheme clusters in a string
//   - Split: The clusters themselves, in order
//   - SourceLen: Raw length in UTF-16 code units (the input length unit)
//   - HasEmoji: Reports whether text contains a symbol from the emoji blocks
//
// # Usage
//
//	short := grapheme.Truncate("👍🏽👨‍👩‍👧🇯🇵", 2) // "👍🏽👨‍👩‍👧"
//	n := grapheme.Count("👨‍👩‍👧")               // 1
//	ok := grapheme.HasEmoji("hello 😀")          // true
package grapheme
