// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package variant

import (
	"errors"
	"fmt"
)

// Kind classifies a parse failure.
type Kind int

const (
	MalformedJSON Kind = iota
	WrongShape
	TooFewVariants
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case MalformedJSON:
		return "malformed_json"
	case WrongShape:
		return "wrong_shape"
	case TooFewVariants:
		return "too_few_variants"
	default:
		return "unknown"
	}
}

// Sentinel errors for use with errors.Is.
var (
	ErrMalformedJSON  = errors.New("malformed json")
	ErrWrongShape     = errors.New("wrong shape")
	ErrTooFewVariants = errors.New("too few variants")
)

// ParseError describes why a raw reply was rejected.
type ParseError struct {
	Kind   Kind
	Detail string
	Cause  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.sentinel(), e.Detail)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying decoder error, if any.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind.
func (e *ParseError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *ParseError) sentinel() error {
	switch e.Kind {
	case MalformedJSON:
		return ErrMalformedJSON
	case WrongShape:
		return ErrWrongShape
	default:
		return ErrTooFewVariants
	}
}

func newParseError(kind Kind, cause error, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Detail: fmt.Sprintf(format, args...), Cause: cause}
}
