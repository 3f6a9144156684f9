// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/model"
)

func openTestStore(t *testing.T, maxHistory int) *Store {
	t.Helper()
	store, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "history.db"), MaxHistory: maxHistory})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// Deterministic, strictly increasing timestamps.
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return store
}

func sample(mode model.Mode, source string) Generation {
	return Generation{
		Mode:   mode,
		Source: source,
		Config: model.Config{Density: model.DensityMore, Tone: model.CustomTone("pirate")},
		Model:  "gpt-3.5-turbo",
		Variants: []model.Variant{
			model.TextVariant(source + " 🎉"),
			model.TextVariant(source + " 🙂"),
			model.TextVariant(source + " 👋"),
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)

	g := sample(model.ModeEmojify, "hello")
	g.Provider = "openai"
	id, err := store.SaveGeneration(ctx, g)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, model.ModeEmojify, got.Mode)
	assert.Equal(t, "hello", got.Source)
	assert.Equal(t, g.Config, got.Config)
	assert.Equal(t, "openai", got.Provider)
	assert.Equal(t, g.Variants, got.Variants)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Empty(t, got.Feedback)
	assert.Empty(t, got.Explanations)
}

func TestSaveAndGet_SearchVariants(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)

	g := Generation{
		Mode:     model.ModeSearch,
		Source:   "dog face",
		Variants: []model.Variant{model.EmojiVariant("🐶", "Dog Face"), model.EmojiVariant("🐕", "Dog")},
	}
	id, err := store.SaveGeneration(ctx, g)
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, g.Variants, got.Variants)
}

func TestGet_NotFound(t *testing.T) {
	store := openTestStore(t, 0)
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)

	for _, src := range []string{"one", "two", "three"} {
		_, err := store.SaveGeneration(ctx, sample(model.ModeEmojify, src))
		require.NoError(t, err)
	}
	_, err := store.SaveGeneration(ctx, sample(model.ModeTranslate, "four"))
	require.NoError(t, err)

	all, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "four", all[0].Source, "newest first")
	assert.Equal(t, "one", all[3].Source)

	mode := model.ModeEmojify
	emojify, err := store.List(ctx, ListOptions{Mode: &mode, Limit: 2})
	require.NoError(t, err)
	require.Len(t, emojify, 2)
	assert.Equal(t, "three", emojify[0].Source)
	assert.Equal(t, "two", emojify[1].Source)
}

func TestFeedback(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)
	id, err := store.SaveGeneration(ctx, sample(model.ModeEmojify, "hi"))
	require.NoError(t, err)

	require.NoError(t, store.SetFeedback(ctx, id, 0, RatingUp))
	require.NoError(t, store.SetFeedback(ctx, id, 1, RatingUp))
	require.NoError(t, store.SetFeedback(ctx, id, 1, RatingDown))
	require.NoError(t, store.SetFeedback(ctx, id, 2, RatingUp))
	require.NoError(t, store.SetFeedback(ctx, id, 2, RatingNone))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[int]Rating{0: RatingUp, 1: RatingDown}, got.Feedback)

	assert.ErrorIs(t, store.SetFeedback(ctx, id, 3, RatingUp), ErrBadIndex)
	assert.ErrorIs(t, store.SetFeedback(ctx, id, -1, RatingUp), ErrBadIndex)
	assert.ErrorIs(t, store.SetFeedback(ctx, "missing", 0, RatingUp), ErrNotFound)
}

func TestExplanations(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)
	id, err := store.SaveGeneration(ctx, sample(model.ModeTranslate, "rain"))
	require.NoError(t, err)

	require.NoError(t, store.SaveExplanation(ctx, id, 1, "first"))
	require.NoError(t, store.SaveExplanation(ctx, id, 1, "second"))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "second"}, got.Explanations)
	assert.ErrorIs(t, store.SaveExplanation(ctx, id, 5, "x"), ErrBadIndex)
}

func TestDeleteClearPrune(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)

	var ids []string
	for _, src := range []string{"a", "b", "c", "d"} {
		id, err := store.SaveGeneration(ctx, sample(model.ModeEmojify, src))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, store.SetFeedback(ctx, ids[0], 0, RatingUp))

	require.NoError(t, store.Delete(ctx, ids[3]))
	assert.ErrorIs(t, store.Delete(ctx, ids[3]), ErrNotFound)

	removed, err := store.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = store.Get(ctx, ids[0])
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ThumbsUp, "feedback is removed with its generation")

	removed, err = store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestMaxHistory(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 2)
	for _, src := range []string{"a", "b", "c"} {
		_, err := store.SaveGeneration(ctx, sample(model.ModeEmojify, src))
		require.NoError(t, err)
	}

	all, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].Source)
	assert.Equal(t, "b", all[1].Source)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)

	a, _ := store.SaveGeneration(ctx, sample(model.ModeEmojify, "a"))
	b, _ := store.SaveGeneration(ctx, sample(model.ModeTranslate, "b"))
	_, _ = store.SaveGeneration(ctx, sample(model.ModeTranslate, "c"))
	require.NoError(t, store.SetFeedback(ctx, a, 0, RatingUp))
	require.NoError(t, store.SetFeedback(ctx, b, 0, RatingUp))
	require.NoError(t, store.SetFeedback(ctx, b, 1, RatingDown))
	require.NoError(t, store.SaveExplanation(ctx, a, 0, "why"))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{
		Total:        3,
		ByMode:       map[string]int{"emojify": 1, "translate": 2},
		ThumbsUp:     2,
		ThumbsDown:   1,
		Explanations: 1,
	}, stats)
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in      string
		want    Rating
		wantErr bool
	}{
		{"up", RatingUp, false},
		{"GOOD", RatingUp, false},
		{"👍", RatingUp, false},
		{"down", RatingDown, false},
		{"bad", RatingDown, false},
		{"none", RatingNone, false},
		{"", RatingNone, false},
		{"meh", RatingNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRating(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRating)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHistorySink_WithEngine(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)
	sink := NewHistorySink(store, func() string { return "ollama" })

	backend := engine.BackendFunc(func(_ context.Context, msgs []model.Message, _ string) (string, error) {
		if msgs[0].Content == "You interpret messages and their emojis for the user." {
			return "Cheerful.", nil
		}
		return `{"1":"hi 👋","2":"hi 🙂","3":"hi 🎉"}`, nil
	})
	eng, err := engine.New(backend, engine.Options{History: sink, Model: "llama3.2"})
	require.NoError(t, err)

	_, err = eng.Generate(ctx, model.Request{Source: "hi", Mode: model.ModeEmojify})
	require.NoError(t, err)
	id := eng.State().RecordID
	require.NotEmpty(t, id)

	_, err = eng.Explain(ctx, 0, "hi 👋", "hi")
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ollama", got.Provider)
	assert.Equal(t, "llama3.2", got.Model)
	assert.Equal(t, "Cheerful.", got.Explanations[0])
}
