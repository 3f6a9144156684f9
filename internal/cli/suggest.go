// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - Typo correction for subcommands and slash commands.
package cli

import (
	"strings"
)

var (
	historySubcommands = []string{"list", "ls", "show", "get", "delete", "rm", "clear", "stats", "export"}
	configSubcommands  = []string{"show", "get", "set", "path", "init"}
	chatCommands       = []string{
		"/help", "/quit", "/exit", "/mode", "/density", "/tone",
		"/explain", "/copy", "/good", "/bad", "/history",
	}
)

// SuggestCommand returns the candidate closest to input, or "" when none is
// within a few edits. The allowed distance grows with the input length.
func SuggestCommand(input string, candidates []string) string {
	input = strings.ToLower(input)
	if len(input) < 2 {
		return ""
	}

	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}
	if len(input) > 8 {
		maxDistance = 3
	}

	bestMatch := ""
	bestDistance := -1
	for _, cmd := range candidates {
		distance := levenshteinDistance(input, cmd)
		if distance == 0 {
			return ""
		}
		if distance <= maxDistance && (bestDistance == -1 || distance < bestDistance) {
			bestDistance = distance
			bestMatch = cmd
		}
	}
	return bestMatch
}

// didYouMean formats a suggestion suffix for an error message.
func didYouMean(input string, candidates []string) string {
	if s := SuggestCommand(input, candidates); s != "" {
		return " (did you mean " + s + "?)"
	}
	return ""
}

// levenshteinDistance is the number of single-byte insertions, deletions or
// substitutions that turn s1 into s2.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	cols := len(s2) + 1
	prev := make([]int, cols)
	curr := make([]int, cols)
	for j := 0; j < cols; j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j < cols; j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[cols-1]
}
