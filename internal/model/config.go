// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Elephant333/emojify/internal/grapheme"
)

// MaxCustomToneUnits is the longest custom tone accepted, in source units.
const MaxCustomToneUnits = 20

var (
	// ErrInvalidDensity is returned for unknown density names or slider steps.
	ErrInvalidDensity = errors.New("invalid density")

	// ErrInvalidTone is returned for an empty or over-long custom tone.
	ErrInvalidTone = errors.New("invalid tone")
)

// =============================================================================
// DENSITY
// =============================================================================

// Density controls how many emoji are injected per unit of text.
type Density int

// The zero value is DensityDefault.
const (
	DensityDefault Density = iota
	DensityFew
	DensityLess
	DensityMore
	DensityAbsurd
)

// densitySteps are the slider positions, indexed by Density.
var densitySteps = [...]int{
	DensityDefault: 20,
	DensityFew:     0,
	DensityLess:    10,
	DensityMore:    30,
	DensityAbsurd:  40,
}

var densityNames = [...]string{
	DensityDefault: "default",
	DensityFew:     "few",
	DensityLess:    "less",
	DensityMore:    "more",
	DensityAbsurd:  "absurd",
}

var densityDirectives = [...]string{
	DensityDefault: "",
	DensityFew:     "Use emojis very sparingly.",
	DensityLess:    "Use emojis sparingly.",
	DensityMore:    "Use emojis generously.",
	DensityAbsurd:  "Use an absurdly large amount of emojis.",
}

// Valid reports whether d is one of the five density values.
func (d Density) Valid() bool {
	return d >= DensityDefault && d <= DensityAbsurd
}

// String returns the density name.
func (d Density) String() string {
	if !d.Valid() {
		return fmt.Sprintf("density(%d)", int(d))
	}
	return densityNames[d]
}

// Step returns the slider position (0, 10, 20, 30 or 40).
func (d Density) Step() int {
	if !d.Valid() {
		return densitySteps[DensityDefault]
	}
	return densitySteps[d]
}

// Directive returns the extra instruction for d, or "" for the default.
func (d Density) Directive() string {
	if !d.Valid() {
		return ""
	}
	return densityDirectives[d]
}

// DensityFromStep maps a slider step to a Density.
func DensityFromStep(step int) (Density, error) {
	for i, s := range densitySteps {
		if s == step {
			return Density(i), nil
		}
	}
	return DensityDefault, fmt.Errorf("%w: step %d (want 0, 10, 20, 30 or 40)", ErrInvalidDensity, step)
}

// ParseDensity accepts a density name ("few".."absurd") or a slider step.
// An empty string is the default density.
func ParseDensity(s string) (Density, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DensityDefault, nil
	}
	if step, err := strconv.Atoi(s); err == nil {
		return DensityFromStep(step)
	}
	key := normalizeName(s)
	for i, name := range densityNames {
		if name == key {
			return Density(i), nil
		}
	}
	return DensityDefault, fmt.Errorf("%w: %q", ErrInvalidDensity, s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Density) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Density) UnmarshalText(text []byte) error {
	parsed, err := ParseDensity(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// normalizeName lower-cases user-typed enum names. A Caser is stateful, so a
// fresh one is built per call.
func normalizeName(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// =============================================================================
// TONE
// =============================================================================

// ToneKind selects a preset tone or a custom one.
type ToneKind int

const (
	ToneDefault ToneKind = iota
	ToneHappy
	ToneSad
	ToneAngry
	ToneCustom
)

var tonePresets = map[string]ToneKind{
	"default": ToneDefault,
	"happy":   ToneHappy,
	"sad":     ToneSad,
	"angry":   ToneAngry,
}

// Tone is either a preset or a free-text custom tone, never both.
type Tone struct {
	Kind   ToneKind
	Custom string
}

// Preset tones.
var (
	DefaultTone = Tone{Kind: ToneDefault}
	HappyTone   = Tone{Kind: ToneHappy}
	SadTone     = Tone{Kind: ToneSad}
	AngryTone   = Tone{Kind: ToneAngry}
)

// CustomTone returns a custom tone with the given text.
func CustomTone(text string) Tone {
	return Tone{Kind: ToneCustom, Custom: text}
}

// ParseTone maps preset names case-insensitively; any other non-empty text
// becomes a custom tone. An empty string is the default tone.
func ParseTone(s string) Tone {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return DefaultTone
	}
	if kind, ok := tonePresets[normalizeName(trimmed)]; ok {
		return Tone{Kind: kind}
	}
	return CustomTone(trimmed)
}

// IsDefault reports whether no tone instruction should be sent.
func (t Tone) IsDefault() bool {
	return t.Kind == ToneDefault
}

// Label returns the word interpolated into the tone directive.
func (t Tone) Label() string {
	switch t.Kind {
	case ToneHappy:
		return "happy"
	case ToneSad:
		return "sad"
	case ToneAngry:
		return "angry"
	case ToneCustom:
		return t.Custom
	default:
		return "default"
	}
}

// String returns the tone label.
func (t Tone) String() string {
	return t.Label()
}

// Directive returns the tone instruction, or "" for the default tone.
func (t Tone) Directive() string {
	if t.IsDefault() {
		return ""
	}
	return "Try to create a " + t.Label() + " tone."
}

// Validate checks the custom tone constraints.
func (t Tone) Validate() error {
	switch t.Kind {
	case ToneDefault, ToneHappy, ToneSad, ToneAngry:
		return nil
	case ToneCustom:
		if strings.TrimSpace(t.Custom) == "" {
			return fmt.Errorf("%w: custom tone is empty", ErrInvalidTone)
		}
		if n := grapheme.SourceLen(t.Custom); n > MaxCustomToneUnits {
			return fmt.Errorf("%w: custom tone is %d characters (max %d)", ErrInvalidTone, n, MaxCustomToneUnits)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown tone kind %d", ErrInvalidTone, t.Kind)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tone) MarshalText() ([]byte, error) {
	return []byte(t.Label()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tone) UnmarshalText(text []byte) error {
	*t = ParseTone(string(text))
	return nil
}

// =============================================================================
// CONFIG
// =============================================================================

// Config holds the tunable generation axes.
type Config struct {
	Density Density `json:"density"`
	Tone    Tone    `json:"tone"`
}

// DefaultConfig returns a configuration that adds no modifier instructions.
func DefaultConfig() Config {
	return Config{Density: DensityDefault, Tone: DefaultTone}
}

// Validate checks both axes.
func (c Config) Validate() error {
	if !c.Density.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDensity, int(c.Density))
	}
	return c.Tone.Validate()
}
