// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive commands.
//
// A destructive command proceeds when:
//  1. --confirm was passed, or
//  2. stdin is a terminal, --json is off, and the user answers yes.
//
// Otherwise it fails with a usage error naming the --confirm form.

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// =============================================================================
// CONFIRMATION
// =============================================================================

// ConfirmationOptions describe how a destructive command was invoked.
type ConfirmationOptions struct {
	ConfirmFlag bool // --confirm was passed
	JSONMode    bool // no interactive prompts in JSON mode
	Interactive bool // stdin is a terminal
}

// RequireConfirmation reports whether action may proceed. usage is the
// command line that skips the prompt, e.g. "clear --confirm".
func RequireConfirmation(in io.Reader, out io.Writer, command, usage, action string, opts ConfirmationOptions) (bool, error) {
	if opts.ConfirmFlag {
		return true, nil
	}
	if opts.JSONMode || !opts.Interactive {
		return false, &UsageError{Command: command, Usage: usage}
	}
	return PromptYesNo(in, out, fmt.Sprintf("%s?", action)), nil
}

// PromptYesNo asks question and returns true for y or yes. Anything else,
// including EOF, is no.
func PromptYesNo(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return false
	}

	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes"
}
