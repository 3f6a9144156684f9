// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elephant333/emojify/internal/model"
)

func TestBuild_MessageOrder(t *testing.T) {
	densities := []model.Density{
		model.DensityDefault, model.DensityFew, model.DensityLess, model.DensityMore, model.DensityAbsurd,
	}
	tones := []model.Tone{
		model.DefaultTone, model.HappyTone, model.SadTone, model.AngryTone, model.CustomTone("pirate"),
	}

	for _, mode := range model.Modes() {
		for _, d := range densities {
			for _, tone := range tones {
				req := model.Request{Source: "hello there", Mode: mode, Config: model.Config{Density: d, Tone: tone}}
				msgs, err := Build(req)
				require.NoError(t, err)

				want := 2
				if d != model.DensityDefault {
					want++
				}
				if !tone.IsDefault() {
					want++
				}
				require.Len(t, msgs, want, "mode=%s density=%s tone=%s", mode, d, tone)

				assert.Equal(t, model.RoleSystem, msgs[0].Role)
				assert.Equal(t, model.RoleUser, msgs[1].Role)
				assert.Contains(t, msgs[1].Content, `"hello there"`)

				next := 2
				if d != model.DensityDefault {
					assert.Equal(t, model.NewUserMessage(d.Directive()), msgs[next])
					next++
				}
				if !tone.IsDefault() {
					assert.Equal(t, model.NewUserMessage("Try to create a "+tone.Label()+" tone."), msgs[next])
				}
			}
		}
	}
}

func TestBuild_SourceVerbatim(t *testing.T) {
	source := `she said "hi" \o/ 🎉`
	msgs, err := Build(model.Request{Source: source, Mode: model.ModeEmojify})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(msgs[1].Content, `"`+source+`"`))
}

func TestBuild_ModeInstructions(t *testing.T) {
	tests := []struct {
		mode     model.Mode
		persona  string
		contains []string
	}{
		{model.ModeEmojify, "You help add emojies appropriately to text messages.", []string{"three possible variations", "json object"}},
		{model.ModeTranslate, "You are someone who translates messages into pure emojis for the user.", []string{"no alphanumeric characters", "double quoted"}},
		{model.ModeSearch, "The user gives a description of an emoji they're trying to find, and you help provide possible answers.", []string{`"emoji"`, `"name"`}},
		{model.ModeAnalyze, "You analyze text messages that include emojis.", []string{`single key "1"`}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			msgs, err := Build(model.Request{Source: "x", Mode: tt.mode})
			require.NoError(t, err)
			assert.Equal(t, tt.persona, msgs[0].Content)
			for _, c := range tt.contains {
				assert.Contains(t, msgs[1].Content, c)
			}
			assert.Contains(t, msgs[1].Content, "Don't include any additional markups.")
			if Required(tt.mode) == 3 {
				assert.Contains(t, msgs[1].Content, `("1", "2", "3")`)
			}
		})
	}
}

func TestBuild_UnknownMode(t *testing.T) {
	_, err := Build(model.Request{Source: "x", Mode: model.Mode(42)})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestRequired(t *testing.T) {
	assert.Equal(t, 3, Required(model.ModeEmojify))
	assert.Equal(t, 3, Required(model.ModeTranslate))
	assert.Equal(t, 3, Required(model.ModeSearch))
	assert.Equal(t, 1, Required(model.ModeAnalyze))
	assert.Equal(t, 0, Required(model.Mode(7)))
}

func TestStrategy_Scope(t *testing.T) {
	cfg := model.Config{Density: model.DensityAbsurd, Tone: model.AngryTone}

	s, _ := Lookup(model.ModeEmojify)
	assert.Equal(t, cfg, s.Scope(cfg))

	s, _ = Lookup(model.ModeTranslate)
	assert.Equal(t, model.Config{Density: model.DensityDefault, Tone: model.AngryTone}, s.Scope(cfg))

	s, _ = Lookup(model.ModeSearch)
	assert.Equal(t, model.DefaultConfig(), s.Scope(cfg))
}

func TestScopeConfig(t *testing.T) {
	cfg := model.Config{Density: model.DensityAbsurd, Tone: model.AngryTone}

	assert.Equal(t, cfg, ScopeConfig(model.ModeEmojify, cfg))
	assert.Equal(t, model.Config{Tone: model.AngryTone}, ScopeConfig(model.ModeTranslate, cfg))
	assert.Equal(t, model.DefaultConfig(), ScopeConfig(model.ModeSearch, cfg))
	assert.Equal(t, model.DefaultConfig(), ScopeConfig(model.ModeAnalyze, cfg))
	assert.Equal(t, cfg, ScopeConfig(model.Mode(9), cfg))

	msgs, err := Build(model.Request{Source: "dog", Mode: model.ModeSearch, Config: ScopeConfig(model.ModeSearch, cfg)})
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

// =============================================================================
// EXPLANATION TESTS
// =============================================================================

func TestBuildExplanation(t *testing.T) {
	msgs, err := BuildExplanation(model.ModeEmojify, "on my way 🚗💨", "on my way")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "You interpret messages and their emojis for the user.", msgs[0].Content)
	assert.Contains(t, msgs[1].Content, `"on my way 🚗💨"`)

	msgs, err = BuildExplanation(model.ModeTranslate, "🚗💨", "on my way")
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, `where "on my way" and the emojis are "🚗💨"`)

	_, err = BuildExplanation(model.ModeSearch, "🐶", "dog")
	assert.ErrorIs(t, err, ErrNoExplanation)

	_, err = BuildExplanation(model.ModeAnalyze, "text", "")
	assert.ErrorIs(t, err, ErrNoExplanation)
}
