// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
)

// FailureMessage is the single user-facing text for every generation failure.
const FailureMessage = "Ack! Something goofed, try clicking again"

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// Validation reasons.
	ErrEmptyInput    = errors.New("empty input")
	ErrSourceTooLong = errors.New("message too long")
	ErrMissingEmoji  = errors.New("missing emoji")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnknownMode   = errors.New("unknown mode")
	ErrNoExplanation = errors.New("mode has no explanation")
	ErrBadIndex      = errors.New("invalid variant index")

	// Generation failures.
	ErrBackendFailure = errors.New("backend failure")
	ErrInvalidReply   = errors.New("invalid reply")

	// ErrSuperseded is returned to a caller whose request finished after a
	// newer request for the same state had started.
	ErrSuperseded = errors.New("request superseded")

	// ErrNoBackend is returned by New when no backend is supplied.
	ErrNoBackend = errors.New("engine requires a backend")
)

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError rejects a request before any backend call.
type ValidationError struct {
	// Reason is one of the validation sentinels above.
	Reason error

	// Message is a human-readable description.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is matches the validation reason.
func (e *ValidationError) Is(target error) bool {
	return target == e.Reason
}

func newValidationError(reason error, cause error, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// =============================================================================
// GENERATION ERROR
// =============================================================================

// GenerationErrorKind classifies a failed backend round trip.
type GenerationErrorKind int

const (
	// BackendFailure covers network, auth, rate limit and timeout failures.
	BackendFailure GenerationErrorKind = iota
	// InvalidReply covers malformed JSON, wrong shape and too few variants.
	InvalidReply
)

// String returns the kind name.
func (k GenerationErrorKind) String() string {
	if k == InvalidReply {
		return "invalid_reply"
	}
	return "backend_failure"
}

// GenerationError is a failed generation or explanation. Its message never
// includes the cause; the cause is available through errors.Unwrap for
// logging and tests.
type GenerationError struct {
	Kind  GenerationErrorKind
	Cause error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Kind == InvalidReply {
		return "generation failed: " + ErrInvalidReply.Error()
	}
	return "generation failed: " + ErrBackendFailure.Error()
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is matches ErrBackendFailure or ErrInvalidReply.
func (e *GenerationError) Is(target error) bool {
	switch e.Kind {
	case InvalidReply:
		return target == ErrInvalidReply
	default:
		return target == ErrBackendFailure
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// IsValidation reports whether err rejected input before a backend call.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTimeout reports whether a backend call ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// Outcome returns a short label for err, used in logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	case IsValidation(err):
		return "validation"
	case errors.Is(err, ErrInvalidReply):
		return "invalid_reply"
	case IsTimeout(err):
		return "timeout"
	default:
		return "backend_failure"
	}
}

// UserMessage returns the text shown to a user for err. Both generation
// failure kinds share FailureMessage.
func UserMessage(err error) string {
	switch {
	case err == nil, errors.Is(err, ErrSuperseded):
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "Type a message first"
	case errors.Is(err, ErrSourceTooLong):
		return "Message too long"
	case errors.Is(err, ErrMissingEmoji):
		return "Please include at least one emoji to analyze"
	case errors.Is(err, ErrInvalidConfig):
		return "Check your density and tone settings"
	case errors.Is(err, ErrNoExplanation):
		return "This mode has no explanations"
	case errors.Is(err, ErrBadIndex):
		return "No variant at that position"
	case IsValidation(err):
		return err.Error()
	default:
		return FailureMessage
	}
}
