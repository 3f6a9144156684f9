// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package grapheme

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// TRUNCATE TESTS
// =============================================================================

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		maxUnits int
		want     string
	}{
		{"empty input", "", 3, ""},
		{"zero budget", "abc", 0, ""},
		{"negative budget", "abc", -2, ""},
		{"ascii shorter than budget", "ab", 5, "ab"},
		{"ascii exact budget", "abc", 3, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"skin tone kept whole", "👍🏽👍🏿👍", 2, "👍🏽👍🏿"},
		{"zwj family kept whole", "👨‍👩‍👧‍👦🐶", 1, "👨‍👩‍👧‍👦"},
		{"flags are pairs", "🇯🇵🇺🇸🇫🇷", 2, "🇯🇵🇺🇸"},
		{"variation selector", "❤️✨", 1, "❤️"},
		{"spaces count as clusters", "🐶 🐱 🐭", 3, "🐶 🐱"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.value, tt.maxUnits))
		})
	}
}

func TestTruncate_BudgetAtLeastCountIsIdentity(t *testing.T) {
	values := []string{
		"hello",
		"👨‍👩‍👧‍👦",
		"🏳️‍🌈 pride",
		"éclair",
		"🇯🇵🇺🇸",
	}
	for _, v := range values {
		n := Count(v)
		for extra := 0; extra < 3; extra++ {
			assert.Equal(t, v, Truncate(v, n+extra), "value %q budget %d", v, n+extra)
		}
	}
}

func TestTruncate_NeverSplitsCluster(t *testing.T) {
	value := "👩🏽‍💻🧑‍🚀🏳️‍🌈🇬🇧👍🏼"
	clusters := Split(value)

	for n := 0; n <= len(clusters); n++ {
		got := Truncate(value, n)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, strings.Join(clusters[:n], ""), got)
		assert.Equal(t, n, Count(got))
	}
}

func TestTruncate_TwelveClustersToFive(t *testing.T) {
	value := strings.Repeat("🐶", 6) + strings.Repeat("👍🏽", 6)
	got := Truncate(value, 5)
	assert.Equal(t, 5, Count(got))
	assert.Equal(t, strings.Repeat("🐶", 5), got)
}

// =============================================================================
// COUNTING TESTS
// =============================================================================

func TestCountAndSplit(t *testing.T) {
	assert.Equal(t, 0, Count(""))
	assert.Nil(t, Split(""))
	assert.Equal(t, 3, Count("a👍🏽b"))
	assert.Equal(t, []string{"a", "👍🏽", "b"}, Split("a👍🏽b"))
}

func TestSourceLen(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 0},
		{"hello", 5},
		{"é", 1},
		{"😀", 2},
		{"👍🏽", 4},
		{"hi 😀", 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SourceLen(tt.value), "SourceLen(%q)", tt.value)
	}
}

// =============================================================================
// EMOJI DETECTION TESTS
// =============================================================================

func TestHasEmoji(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"hello", false},
		{"", false},
		{"hello 😀", true},
		{"sunny ☀", true},
		{"check ✅", true},
		{"rocket 🚀", true},
		{"pizza 🍕", true},
		{"numbers 123 !?", false},
		{"arrow →", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, HasEmoji(tt.value))
		})
	}
}

func TestIsEmoji_RangeEdges(t *testing.T) {
	assert.True(t, IsEmoji(0x1F300))
	assert.True(t, IsEmoji(0x1F6FF))
	assert.True(t, IsEmoji(0x2600))
	assert.True(t, IsEmoji(0x27BF))
	assert.False(t, IsEmoji(0x25FF))
	assert.False(t, IsEmoji(0x27C0))
	assert.False(t, IsEmoji(0x1F2FF))
	assert.False(t, IsEmoji(0x1F700))
}
