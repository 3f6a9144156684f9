// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerationError_HidesCause(t *testing.T) {
	cause := errors.New("api key sk-123 rejected")
	err := &GenerationError{Kind: BackendFailure, Cause: cause}

	assert.Equal(t, "generation failed: backend failure", err.Error())
	assert.ErrorIs(t, err, ErrBackendFailure)
	assert.NotErrorIs(t, err, ErrInvalidReply)
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("emojify: %w", &GenerationError{Kind: InvalidReply, Cause: cause})
	assert.ErrorIs(t, wrapped, ErrInvalidReply)
	assert.False(t, IsValidation(wrapped))
}

func TestValidationError_Is(t *testing.T) {
	err := newValidationError(ErrMissingEmoji, nil, "no emoji")
	assert.ErrorIs(t, err, ErrMissingEmoji)
	assert.NotErrorIs(t, err, ErrEmptyInput)
	assert.True(t, IsValidation(err))
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{ErrSuperseded, "superseded"},
		{newValidationError(ErrEmptyInput, nil, ""), "validation"},
		{&GenerationError{Kind: InvalidReply}, "invalid_reply"},
		{&GenerationError{Kind: BackendFailure, Cause: context.DeadlineExceeded}, "timeout"},
		{&GenerationError{Kind: BackendFailure, Cause: errors.New("503")}, "backend_failure"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "", UserMessage(ErrSuperseded))
	assert.Equal(t, "Message too long", UserMessage(newValidationError(ErrSourceTooLong, nil, "")))
	assert.Equal(t, "Please include at least one emoji to analyze", UserMessage(newValidationError(ErrMissingEmoji, nil, "")))
	assert.Equal(t, FailureMessage, UserMessage(&GenerationError{Kind: InvalidReply}))
	assert.Equal(t, FailureMessage, UserMessage(&GenerationError{Kind: BackendFailure}))
}
