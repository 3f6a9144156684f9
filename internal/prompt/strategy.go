// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"fmt"

	"github.com/Elephant333/emojify/internal/model"
)

// Strategy describes one mode.
type Strategy struct {
	Mode model.Mode

	// Persona is the system message.
	Persona string

	// Instruction formats the primary user message from the source text.
	Instruction func(source string) string

	// Required is the number of variants a reply must contain.
	Required int

	// Density and Tone report whether the mode exposes these axes to users.
	Density bool
	Tone    bool

	// ExplainPersona is the explanation system message; empty when the mode
	// has no explanation.
	ExplainPersona string

	// ExplainInstruction formats the explanation user message.
	ExplainInstruction func(variant, source string) string
}

// Explainable reports whether variants of this mode can be explained.
func (s Strategy) Explainable() bool {
	return s.ExplainPersona != "" && s.ExplainInstruction != nil
}

// Scope clears the configuration axes this mode does not expose.
func (s Strategy) Scope(cfg model.Config) model.Config {
	if !s.Density {
		cfg.Density = model.DensityDefault
	}
	if !s.Tone {
		cfg.Tone = model.DefaultTone
	}
	return cfg
}

// =============================================================================
// STRATEGY TABLE
// =============================================================================

var strategies = map[model.Mode]Strategy{
	model.ModeEmojify: {
		Mode:     model.ModeEmojify,
		Persona:  "You help add emojies appropriately to text messages.",
		Required: 3,
		Density:  true,
		Tone:     true,
		Instruction: func(source string) string {
			return fmt.Sprintf("Given the following text message, add emojies appropriately throughout "+
				"the text. Give me a json object of three possible variations with numbers as the json "+
				"keys (\"1\", \"2\", \"3\"). Don't include any additional markups. "+
				"Here's the message: \"%s\"", source)
		},
		ExplainPersona: "You interpret messages and their emojis for the user.",
		ExplainInstruction: func(variant, _ string) string {
			return fmt.Sprintf("Given the following text message, give a very short (couple sentences) "+
				"analysis of the message's tone/meaning and how the emojis contribute to that: \"%s\"", variant)
		},
	},
	model.ModeTranslate: {
		Mode:     model.ModeTranslate,
		Persona:  "You are someone who translates messages into pure emojis for the user.",
		Required: 3,
		Tone:     true,
		Instruction: func(source string) string {
			return fmt.Sprintf("Given the following text, do the following. Replace all characters with "+
				"emojis correspond to the message's semantic meaning (there must only be emojis and "+
				"spaces, no alphanumeric characters). Give me a json object of three possible variations "+
				"with numbers as the json keys (\"1\", \"2\", \"3\") (remember the keys should also be double quoted). "+
				"Don't include any additional markups. Here's the message: \"%s\"", source)
		},
		ExplainPersona: "You explain a given translation of text into pure emojis for the user.",
		ExplainInstruction: func(variant, source string) string {
			return fmt.Sprintf("Given the following text and emojis, give a very short (couple sentences) "+
				"explanation of how the semantic meaning of the emojis together represent the semantic "+
				"meaning of the text where \"%s\" and the emojis are \"%s\"", source, variant)
		},
	},
	model.ModeSearch: {
		Mode:     model.ModeSearch,
		Persona:  "The user gives a description of an emoji they're trying to find, and you help provide possible answers.",
		Required: 3,
		Instruction: func(source string) string {
			return fmt.Sprintf("Given the following emoji description, figure out what emoji it is. "+
				"Give me a json object of three possible emojis. Let numbers be the json keys "+
				"(\"1\", \"2\", \"3\"), and the two values \"emoji\" and \"name\" be the emoji itself and "+
				"the name of the emoji, respectively. Don't include any additional markups. "+
				"Here's the message: \"%s\"", source)
		},
	},
	model.ModeAnalyze: {
		Mode:     model.ModeAnalyze,
		Persona:  "You analyze text messages that include emojis.",
		Required: 1,
		Instruction: func(source string) string {
			return fmt.Sprintf("Given the following text message with emojis, analyze the tone and "+
				"meaning of the message while taking the emojis and punctuation into account. "+
				"Give me a json object with a single key \"1\" whose value is the analysis as a string. "+
				"Don't include any additional markups. Here's the message: \"%s\"", source)
		},
	},
}

// ScopeConfig applies the Scope of mode's strategy to cfg. Unknown modes
// return cfg unchanged.
func ScopeConfig(mode model.Mode, cfg model.Config) model.Config {
	s, ok := strategies[mode]
	if !ok {
		return cfg
	}
	return s.Scope(cfg)
}

// Lookup returns the strategy for mode.
func Lookup(mode model.Mode) (Strategy, bool) {
	s, ok := strategies[mode]
	return s, ok
}

// Required returns the variant count a mode must produce, or 0 for an
// unknown mode.
func Required(mode model.Mode) int {
	return strategies[mode].Required
}
