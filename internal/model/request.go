// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"

	"github.com/Elephant333/emojify/internal/grapheme"
)

// MaxSourceUnits is the longest source text accepted, in UTF-16 code units.
const MaxSourceUnits = 200

var (
	// ErrEmptySource is returned when a request has no source text.
	ErrEmptySource = errors.New("source text is empty")

	// ErrSourceTooLong is returned when the source exceeds MaxSourceUnits.
	ErrSourceTooLong = errors.New("message too long")

	// ErrUnknownMode is returned for an unrecognized mode name or value.
	ErrUnknownMode = errors.New("unknown mode")
)

// =============================================================================
// MODE
// =============================================================================

// Mode selects the transformation applied to the source text.
type Mode int

const (
	// ModeEmojify adds emoji throughout the text.
	ModeEmojify Mode = iota
	// ModeTranslate replaces the text with pure emoji.
	ModeTranslate
	// ModeSearch finds emoji matching a description.
	ModeSearch
	// ModeAnalyze describes the tone and meaning of text that contains emoji.
	ModeAnalyze
)

var modeNames = [...]string{
	ModeEmojify:   "emojify",
	ModeTranslate: "translate",
	ModeSearch:    "search",
	ModeAnalyze:   "analyze",
}

// Modes lists every mode in display order.
func Modes() []Mode {
	return []Mode{ModeEmojify, ModeTranslate, ModeSearch, ModeAnalyze}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m >= ModeEmojify && m <= ModeAnalyze
}

// String returns the mode name.
func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode maps a mode name to a Mode. "add" and "translate-to-emoji" are
// accepted as aliases.
func ParseMode(s string) (Mode, error) {
	switch normalizeName(s) {
	case "emojify", "add":
		return ModeEmojify, nil
	case "translate", "translate-to-emoji", "translate_to_emoji":
		return ModeTranslate, nil
	case "search":
		return ModeSearch, nil
	case "analyze", "analyse":
		return ModeAnalyze, nil
	}
	return ModeEmojify, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// =============================================================================
// REQUEST
// =============================================================================

// Request is one generation: source text, mode and configuration.
type Request struct {
	Source string `json:"text"`
	Mode   Mode   `json:"mode"`
	Config Config `json:"config"`
}

// Validate checks the source bounds, the mode and the configuration.
// Emoji presence for analyze requests is checked by the engine.
func (r Request) Validate() error {
	if r.Source == "" {
		return ErrEmptySource
	}
	if n := grapheme.SourceLen(r.Source); n > MaxSourceUnits {
		return fmt.Errorf("%w: %d characters (max %d)", ErrSourceTooLong, n, MaxSourceUnits)
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(r.Mode))
	}
	return r.Config.Validate()
}
