// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package grapheme

import (
	"strings"
	"unicode/utf16"

	"github.com/rivo/uniseg"
)

// =============================================================================
// CLUSTER OPERATIONS
// =============================================================================

// Truncate returns the first maxUnits grapheme clusters of value, or value
// itself when it has no more than maxUnits clusters. maxUnits <= 0 yields "".
func Truncate(value string, maxUnits int) string {
	if maxUnits <= 0 || value == "" {
		return ""
	}

	var b strings.Builder
	g := uniseg.NewGraphemes(value)
	n := 0
	for g.Next() {
		if n == maxUnits {
			return b.String()
		}
		b.WriteString(g.Str())
		n++
	}
	return value
}

// Count returns the number of grapheme clusters in value.
func Count(value string) int {
	return uniseg.GraphemeClusterCount(value)
}

// Split returns the grapheme clusters of value in order.
func Split(value string) []string {
	if value == "" {
		return nil
	}
	clusters := make([]string, 0, len(value))
	g := uniseg.NewGraphemes(value)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}
	return clusters
}

// SourceLen returns the length of value in UTF-16 code units.
// Input limits (source text, custom tone) are expressed in this unit, and the
// translation cap uses it as the cluster budget.
func SourceLen(value string) int {
	n := 0
	for _, r := range value {
		n += utf16.RuneLen(r)
	}
	return n
}

// =============================================================================
// EMOJI DETECTION
// =============================================================================

// emojiRanges are the code point blocks accepted as "contains an emoji".
var emojiRanges = [...]struct{ lo, hi rune }{
	{0x1F300, 0x1F5FF}, // Miscellaneous Symbols and Pictographs
	{0x1F600, 0x1F64F}, // Emoticons
	{0x1F680, 0x1F6FF}, // Transport and Map Symbols
	{0x2600, 0x26FF},   // Miscellaneous Symbols
	{0x2700, 0x27BF},   // Dingbats
}

// IsEmoji reports whether r falls inside one of the recognized emoji blocks.
func IsEmoji(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg.lo && r <= rg.hi {
			return true
		}
	}
	return false
}

// HasEmoji reports whether value contains at least one emoji code point.
func HasEmoji(value string) bool {
	for _, r := range value {
		if IsEmoji(r) {
			return true
		}
	}
	return false
}
