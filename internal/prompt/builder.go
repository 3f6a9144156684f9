// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"errors"
	"fmt"

	"github.com/Elephant333/emojify/internal/model"
)

var (
	// ErrUnknownMode is returned when no strategy exists for a mode.
	ErrUnknownMode = errors.New("no prompt strategy for mode")

	// ErrNoExplanation is returned for modes that have no explanation prompt.
	ErrNoExplanation = errors.New("mode has no explanation")
)

// Build returns the ordered messages for req: system, primary, density?,
// tone?. The source text is interpolated verbatim.
func Build(req model.Request) ([]model.Message, error) {
	s, ok := Lookup(req.Mode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, req.Mode)
	}

	msgs := make([]model.Message, 0, 4)
	msgs = append(msgs,
		model.NewSystemMessage(s.Persona),
		model.NewUserMessage(s.Instruction(req.Source)),
	)
	if d := req.Config.Density.Directive(); d != "" {
		msgs = append(msgs, model.NewUserMessage(d))
	}
	if t := req.Config.Tone.Directive(); t != "" {
		msgs = append(msgs, model.NewUserMessage(t))
	}
	return msgs, nil
}

// BuildExplanation returns the two-message prompt explaining one variant.
// source is only interpolated by modes that correlate output back to input.
func BuildExplanation(mode model.Mode, variant, source string) ([]model.Message, error) {
	s, ok := Lookup(mode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	if !s.Explainable() {
		return nil, fmt.Errorf("%w: %s", ErrNoExplanation, mode)
	}
	return []model.Message{
		model.NewSystemMessage(s.ExplainPersona),
		model.NewUserMessage(s.ExplainInstruction(variant, source)),
	}, nil
}
