// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for emojify commands.
//
// Handlers always return errors and never print them; main displays the
// error once and exits with GetExitCode.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general/unknown error
	ExitError = 1
	// ExitUsage indicates invalid command usage or arguments
	ExitUsage = 2
	// ExitValidation indicates input the engine refused before any backend call
	ExitValidation = 3
	// ExitBackend indicates a failed or malformed backend reply
	ExitBackend = 4
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Command string
	Usage   string
	Hint    string // optional, e.g. a suggested spelling
}

func (e *UsageError) Error() string {
	msg := fmt.Sprintf("usage: emojify %s %s", e.Command, e.Usage)
	if e.Hint != "" {
		msg += e.Hint
	}
	return msg
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// =============================================================================
// DISPLAY
// =============================================================================

// Message returns the text shown to a user for err. Engine errors use the
// engine's user-facing wording so backend details never reach the terminal.
func Message(err error) string {
	var (
		ge *engine.GenerationError
		ve *engine.ValidationError
	)
	switch {
	case errors.As(err, &ge), errors.As(err, &ve), errors.Is(err, engine.ErrSuperseded):
		return engine.UserMessage(err)
	case errors.Is(err, storage.ErrNotFound):
		return "No such generation"
	case errors.Is(err, storage.ErrBadIndex):
		return engine.UserMessage(engine.ErrBadIndex)
	default:
		return err.Error()
	}
}

// DisplayError writes err to w, as a JSON envelope in JSON mode.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		NewJSONErrorResponseStr(command, Message(err)).Print(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), Message(err))
}

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsage
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) || engine.IsValidation(err) {
		return ExitValidation
	}

	var genErr *engine.GenerationError
	if errors.As(err, &genErr) {
		return ExitBackend
	}

	return ExitError
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// mapStoreError turns storage sentinels into CLI errors.
func mapStoreError(err error, id string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &NotFoundError{Resource: "generation", ID: id}
	case errors.Is(err, storage.ErrBadIndex):
		return &ValidationError{Field: "variant", Reason: "no variant at that position"}
	default:
		return err
	}
}
