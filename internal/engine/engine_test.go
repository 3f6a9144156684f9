// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elephant333/emojify/internal/grapheme"
	"github.com/Elephant333/emojify/internal/model"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// fakeBackend records calls and answers through respond.
type fakeBackend struct {
	mu      sync.Mutex
	calls   [][]model.Message
	models  []string
	respond func(ctx context.Context, msgs []model.Message) (string, error)
}

func (f *fakeBackend) Complete(ctx context.Context, msgs []model.Message, modelName string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, msgs)
	f.models = append(f.models, modelName)
	f.mu.Unlock()
	return f.respond(ctx, msgs)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func reply(raw string) *fakeBackend {
	return &fakeBackend{respond: func(context.Context, []model.Message) (string, error) {
		return raw, nil
	}}
}

// gatedBackend blocks each call until the gate for a key found in the last
// message is released.
type gatedBackend struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	replies map[string]string
	started chan string
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{
		gates:   make(map[string]chan struct{}),
		replies: make(map[string]string),
		started: make(chan string, 16),
	}
}

func (g *gatedBackend) expect(key, raw string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gates[key] = make(chan struct{})
	g.replies[key] = raw
}

func (g *gatedBackend) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	close(g.gates[key])
}

func (g *gatedBackend) Complete(ctx context.Context, msgs []model.Message, _ string) (string, error) {
	content := msgs[1].Content
	g.mu.Lock()
	var key string
	for k := range g.gates {
		if strings.Contains(content, k) {
			key = k
			break
		}
	}
	gate, raw := g.gates[key], g.replies[key]
	g.mu.Unlock()
	if gate == nil {
		return "", errors.New("unexpected call")
	}

	g.started <- key
	select {
	case <-gate:
		if strings.HasPrefix(raw, "error:") {
			return "", errors.New(strings.TrimPrefix(raw, "error:"))
		}
		return raw, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type fakeHistory struct {
	mu           sync.Mutex
	generations  []model.Request
	explanations map[int]string
}

func (h *fakeHistory) SaveGeneration(_ context.Context, req model.Request, _ string, _ []model.Variant) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.generations = append(h.generations, req)
	return "rec-1", nil
}

func (h *fakeHistory) SaveExplanation(_ context.Context, recordID string, index int, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.explanations == nil {
		h.explanations = make(map[int]string)
	}
	h.explanations[index] = recordID + ":" + text
	return nil
}

type countingRecorder struct {
	mu       sync.Mutex
	started  int
	outcomes []string
	explains []string
}

func (r *countingRecorder) GenerationStarted(context.Context, model.Mode) {
	r.mu.Lock()
	r.started++
	r.mu.Unlock()
}

func (r *countingRecorder) GenerationFinished(_ context.Context, _ model.Mode, outcome string, _ time.Duration) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

func (r *countingRecorder) ExplanationFinished(_ context.Context, _ model.Mode, outcome string, _ time.Duration) {
	r.mu.Lock()
	r.explains = append(r.explains, outcome)
	r.mu.Unlock()
}

func newEngine(t *testing.T, b Backend, opts Options) *Engine {
	t.Helper()
	e, err := New(b, opts)
	require.NoError(t, err)
	return e
}

const threeVariants = `{"1":"a","2":"b","3":"c"}`

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestNew_FillsDefaults(t *testing.T) {
	e := newEngine(t, reply(threeVariants), Options{})
	assert.Equal(t, model.DefaultModel, e.Model())
	assert.Equal(t, DefaultOptions().RequestTimeout, e.opts.RequestTimeout)
	assert.Equal(t, StatusIdle, e.State().Status)
}

// =============================================================================
// GENERATE
// =============================================================================

func TestGenerate_Success(t *testing.T) {
	b := reply(threeVariants)
	e := newEngine(t, b, Options{Model: "test-model"})

	got, err := e.Generate(context.Background(), model.Request{
		Source: "hello",
		Mode:   model.ModeEmojify,
		Config: model.Config{Density: model.DensityMore, Tone: model.HappyTone},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Variant{model.TextVariant("a"), model.TextVariant("b"), model.TextVariant("c")}, got)

	st := e.State()
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, uint64(1), st.ID)
	assert.Equal(t, got, st.Variants)

	require.Equal(t, 1, b.callCount())
	assert.Equal(t, "test-model", b.models[0])
	assert.Len(t, b.calls[0], 4)
	assert.Equal(t, "Try to create a happy tone.", b.calls[0][3].Content)
}

func TestGenerate_EmptySourceIsNoop(t *testing.T) {
	b := reply(threeVariants)
	e := newEngine(t, b, Options{})

	got, err := e.Generate(context.Background(), model.Request{Source: "", Mode: model.ModeEmojify})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.True(t, IsValidation(err))
	assert.Equal(t, StatusIdle, e.State().Status)
	assert.Equal(t, uint64(0), e.State().ID)
	assert.Equal(t, 0, b.callCount())
}

func TestGenerate_Revalidation(t *testing.T) {
	tests := []struct {
		name string
		req  model.Request
		want error
	}{
		{"too long", model.Request{Source: strings.Repeat("a", model.MaxSourceUnits+1)}, ErrSourceTooLong},
		{"bad custom tone", model.Request{Source: "hi", Config: model.Config{Tone: model.CustomTone(strings.Repeat("x", 21))}}, ErrInvalidConfig},
		{"bad mode", model.Request{Source: "hi", Mode: model.Mode(12)}, ErrUnknownMode},
		{"analyze without emoji", model.Request{Source: "hello", Mode: model.ModeAnalyze}, ErrMissingEmoji},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := reply(threeVariants)
			e := newEngine(t, b, Options{})
			_, err := e.Generate(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, b.callCount())
			assert.Equal(t, StatusIdle, e.State().Status)
		})
	}
}

func TestGenerate_AnalyzeWithEmojiCallsBackend(t *testing.T) {
	b := reply(`{"1":"A cheerful greeting."}`)
	e := newEngine(t, b, Options{})

	got, err := e.Generate(context.Background(), model.Request{Source: "hello 😀", Mode: model.ModeAnalyze})
	require.NoError(t, err)
	assert.Equal(t, 1, b.callCount())
	assert.Equal(t, []model.Variant{model.TextVariant("A cheerful greeting.")}, got)
}

func TestGenerate_BackendFailure(t *testing.T) {
	cause := errors.New("401 unauthorized")
	b := &fakeBackend{respond: func(context.Context, []model.Message) (string, error) {
		return "", cause
	}}
	e := newEngine(t, b, Options{})

	_, err := e.Generate(context.Background(), model.Request{Source: "hi", Mode: model.ModeEmojify})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "401")
	assert.Equal(t, FailureMessage, UserMessage(err))

	st := e.State()
	assert.Equal(t, StatusError, st.Status)
	assert.Nil(t, st.Variants)
	assert.Equal(t, err, st.Err)
}

func TestGenerate_InvalidReply(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		mode model.Mode
	}{
		{"not json", "not json", model.ModeEmojify},
		{"too few", `{"1":"a"}`, model.ModeEmojify},
		{"search one of three", `{"1":{"emoji":"🐶","name":"Dog"}}`, model.ModeSearch},
		{"array", `["a","b","c"]`, model.ModeTranslate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, reply(tt.raw), Options{})
			_, err := e.Generate(context.Background(), model.Request{Source: "dog", Mode: tt.mode})
			assert.ErrorIs(t, err, ErrInvalidReply)
			assert.Equal(t, FailureMessage, UserMessage(err))
			assert.Equal(t, StatusError, e.State().Status)
			assert.Equal(t, "invalid_reply", Outcome(err))
		})
	}
}

func TestGenerate_TranslateTruncatesToSourceLength(t *testing.T) {
	twelve := strings.Repeat("🐶", 4) + strings.Repeat("👍🏽", 4) + strings.Repeat("🇯🇵", 4)
	b := reply(`{"1":"` + twelve + `","2":"🙂","3":"👋🌍"}`)
	e := newEngine(t, b, Options{})

	got, err := e.Generate(context.Background(), model.Request{Source: "hello", Mode: model.ModeTranslate})
	require.NoError(t, err)
	assert.Equal(t, 12, grapheme.Count(twelve))
	assert.Equal(t, 5, grapheme.Count(got[0].Text))
	assert.Equal(t, strings.Repeat("🐶", 4)+"👍🏽", got[0].Text)
	assert.Equal(t, "🙂", got[1].Text)
	assert.Equal(t, "👋🌍", got[2].Text)
}

func TestGenerate_EmojifyIsNotTruncated(t *testing.T) {
	long := "hi " + strings.Repeat("🎉", 10)
	e := newEngine(t, reply(`{"1":"`+long+`","2":"b","3":"c"}`), Options{})

	got, err := e.Generate(context.Background(), model.Request{Source: "hi", Mode: model.ModeEmojify})
	require.NoError(t, err)
	assert.Equal(t, long, got[0].Text)
}

func TestGenerate_Timeout(t *testing.T) {
	b := &fakeBackend{respond: func(ctx context.Context, _ []model.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	e := newEngine(t, b, Options{RequestTimeout: 20 * time.Millisecond})

	_, err := e.Generate(context.Background(), model.Request{Source: "hi", Mode: model.ModeEmojify})
	assert.ErrorIs(t, err, ErrBackendFailure)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, "timeout", Outcome(err))
	assert.Equal(t, StatusError, e.State().Status)
}

func TestGenerate_StaleCompletionIsDiscarded(t *testing.T) {
	g := newGatedBackend()
	g.expect("first", `{"1":"old1","2":"old2","3":"old3"}`)
	g.expect("second", `{"1":"new1","2":"new2","3":"new3"}`)
	e := newEngine(t, g, Options{})

	firstErr := make(chan error, 1)
	go func() {
		_, err := e.Generate(context.Background(), model.Request{Source: "first", Mode: model.ModeEmojify})
		firstErr <- err
	}()
	require.Equal(t, "first", <-g.started)

	secondDone := make(chan error, 1)
	go func() {
		_, err := e.Generate(context.Background(), model.Request{Source: "second", Mode: model.ModeEmojify})
		secondDone <- err
	}()
	require.Equal(t, "second", <-g.started)

	g.release("second")
	require.NoError(t, <-secondDone)

	g.release("first")
	assert.ErrorIs(t, <-firstErr, ErrSuperseded)

	st := e.State()
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, "second", st.Source)
	assert.Equal(t, "new1", st.Variants[0].Text)
}

func TestGenerate_StaleFailureIsDiscarded(t *testing.T) {
	g := newGatedBackend()
	g.expect("first", "error:connection reset")
	g.expect("second", threeVariants)
	e := newEngine(t, g, Options{})

	firstErr := make(chan error, 1)
	go func() {
		_, err := e.Generate(context.Background(), model.Request{Source: "first", Mode: model.ModeEmojify})
		firstErr <- err
	}()
	<-g.started

	secondDone := make(chan error, 1)
	go func() {
		_, err := e.Generate(context.Background(), model.Request{Source: "second", Mode: model.ModeEmojify})
		secondDone <- err
	}()
	<-g.started

	g.release("first")
	assert.ErrorIs(t, <-firstErr, ErrSuperseded)
	assert.Equal(t, StatusLoading, e.State().Status)

	g.release("second")
	require.NoError(t, <-secondDone)
	assert.Equal(t, StatusSuccess, e.State().Status)
}

func TestGenerate_HistoryAndRecorder(t *testing.T) {
	h := &fakeHistory{}
	r := &countingRecorder{}
	e := newEngine(t, reply(threeVariants), Options{History: h, Recorder: r})

	_, err := e.Generate(context.Background(), model.Request{Source: "hi", Mode: model.ModeEmojify})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", e.State().RecordID)
	assert.Len(t, h.generations, 1)

	_, err = e.Generate(context.Background(), model.Request{Source: "", Mode: model.ModeEmojify})
	require.Error(t, err)

	assert.Equal(t, 1, r.started)
	assert.Equal(t, []string{"success"}, r.outcomes)
}

// gatedHistory names records after their source and holds the save of
// "first" until release is closed.
type gatedHistory struct {
	saving  chan struct{}
	release chan struct{}
}

func (h *gatedHistory) SaveGeneration(_ context.Context, req model.Request, _ string, _ []model.Variant) (string, error) {
	if req.Source == "first" {
		close(h.saving)
		<-h.release
	}
	return "rec-" + req.Source, nil
}

func (h *gatedHistory) SaveExplanation(context.Context, string, int, string) error {
	return nil
}

func TestGenerateResult_RecordIDSurvivesNewerRequest(t *testing.T) {
	h := &gatedHistory{saving: make(chan struct{}), release: make(chan struct{})}
	g := newGatedBackend()
	g.expect("first", threeVariants)
	g.expect("second", threeVariants)
	e := newEngine(t, g, Options{History: h})

	firstDone := make(chan Result, 1)
	go func() {
		res, err := e.GenerateResult(context.Background(), model.Request{Source: "first", Mode: model.ModeEmojify})
		assert.NoError(t, err)
		firstDone <- res
	}()
	<-g.started
	g.release("first")
	<-h.saving

	secondDone := make(chan error, 1)
	go func() {
		_, err := e.Generate(context.Background(), model.Request{Source: "second", Mode: model.ModeEmojify})
		secondDone <- err
	}()
	<-g.started
	require.Equal(t, StatusLoading, e.State().Status)

	close(h.release)
	res := <-firstDone
	assert.Equal(t, "rec-first", res.RecordID)
	assert.Len(t, res.Variants, 3)
	assert.Empty(t, e.State().RecordID)

	g.release("second")
	require.NoError(t, <-secondDone)
	assert.Equal(t, "rec-second", e.State().RecordID)
}

func TestSubscribe_ReceivesLatestSnapshot(t *testing.T) {
	e := newEngine(t, reply(threeVariants), Options{})
	ch, cancel := e.Subscribe()
	defer cancel()

	_, err := e.Generate(context.Background(), model.Request{Source: "hi", Mode: model.ModeEmojify})
	require.NoError(t, err)

	snap := <-ch
	assert.Equal(t, StatusSuccess, snap.Request.Status)
	assert.Len(t, snap.Request.Variants, 3)

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

// =============================================================================
// EXPLAIN
// =============================================================================

func TestExplain_MarksPendingThenText(t *testing.T) {
	g := newGatedBackend()
	g.expect("wave", "It is friendly.")
	e := newEngine(t, g, Options{})

	done := make(chan string, 1)
	go func() {
		text, err := e.ExplainMode(context.Background(), model.ModeEmojify, 0, "wave 👋", "wave")
		assert.NoError(t, err)
		done <- text
	}()
	<-g.started
	assert.Equal(t, ExplanationPending, e.Explanations().Get(0).Status)

	g.release("wave")
	assert.Equal(t, "It is friendly.", <-done)
	got := e.Explanations().Get(0)
	assert.Equal(t, ExplanationText, got.Status)
	assert.Equal(t, "It is friendly.", got.Text)
}

func TestExplain_IndicesAreIndependent(t *testing.T) {
	g := newGatedBackend()
	g.expect("alpha", "first explanation")
	g.expect("beta", "error:boom")
	e := newEngine(t, g, Options{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = e.ExplainMode(context.Background(), model.ModeEmojify, 0, "alpha 🅰", "alpha")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = e.ExplainMode(context.Background(), model.ModeEmojify, 1, "beta 🅱", "beta")
	}()
	<-g.started
	<-g.started

	g.release("beta")
	require.Eventually(t, func() bool {
		return e.Explanations().Get(1).Status == ExplanationFailed
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, ExplanationPending, e.Explanations().Get(0).Status)

	g.release("alpha")
	wg.Wait()
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], ErrBackendFailure)
	assert.Equal(t, "first explanation", e.Explanations().Get(0).Text)
	assert.Equal(t, ExplanationFailed, e.Explanations().Get(1).Status)
	assert.Equal(t, ExplanationNone, e.Explanations().Get(2).Status)
	assert.Equal(t, StatusIdle, e.State().Status)
}

func TestExplain_SameIndexOverwrites(t *testing.T) {
	g := newGatedBackend()
	g.expect("older", "old text")
	g.expect("newer", "new text")
	e := newEngine(t, g, Options{})

	olderErr := make(chan error, 1)
	go func() {
		_, err := e.ExplainMode(context.Background(), model.ModeEmojify, 2, "older", "")
		olderErr <- err
	}()
	<-g.started

	newerErr := make(chan error, 1)
	go func() {
		_, err := e.ExplainMode(context.Background(), model.ModeEmojify, 2, "newer", "")
		newerErr <- err
	}()
	<-g.started

	g.release("newer")
	require.NoError(t, <-newerErr)
	g.release("older")
	assert.ErrorIs(t, <-olderErr, ErrSuperseded)
	assert.Equal(t, "new text", e.Explanations().Get(2).Text)
}

func TestExplain_ResetBySuccessfulGeneration(t *testing.T) {
	b := &fakeBackend{respond: func(_ context.Context, msgs []model.Message) (string, error) {
		if msgs[0].Role == model.RoleSystem && strings.Contains(msgs[0].Content, "interpret") {
			return "explained", nil
		}
		return threeVariants, nil
	}}
	e := newEngine(t, b, Options{})

	_, err := e.Generate(context.Background(), model.Request{Source: "hi", Mode: model.ModeEmojify})
	require.NoError(t, err)
	_, err = e.Explain(context.Background(), 1, "b", "hi")
	require.NoError(t, err)
	assert.Equal(t, ExplanationText, e.Explanations().Get(1).Status)

	_, err = e.Generate(context.Background(), model.Request{Source: "again", Mode: model.ModeEmojify})
	require.NoError(t, err)
	assert.Empty(t, e.Explanations())
}

func TestExplain_FailedGenerationKeepsExplanations(t *testing.T) {
	fail := false
	b := &fakeBackend{respond: func(_ context.Context, msgs []model.Message) (string, error) {
		if strings.Contains(msgs[0].Content, "interpret") {
			return "explained", nil
		}
		if fail {
			return "", errors.New("down")
		}
		return threeVariants, nil
	}}
	e := newEngine(t, b, Options{})

	_, err := e.Generate(context.Background(), model.Request{Source: "hi", Mode: model.ModeEmojify})
	require.NoError(t, err)
	_, err = e.Explain(context.Background(), 0, "a", "hi")
	require.NoError(t, err)

	fail = true
	_, err = e.Generate(context.Background(), model.Request{Source: "hi", Mode: model.ModeEmojify})
	require.Error(t, err)
	assert.Equal(t, ExplanationText, e.Explanations().Get(0).Status)
}

func TestExplain_Validation(t *testing.T) {
	b := reply(threeVariants)
	e := newEngine(t, b, Options{})

	_, err := e.ExplainMode(context.Background(), model.ModeSearch, 0, "🐶", "dog")
	assert.ErrorIs(t, err, ErrNoExplanation)

	_, err = e.ExplainMode(context.Background(), model.ModeEmojify, -1, "x", "")
	assert.ErrorIs(t, err, ErrBadIndex)

	_, err = e.ExplainMode(context.Background(), model.ModeEmojify, 0, "", "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = e.Generate(context.Background(), model.Request{Source: "hi", Mode: model.ModeEmojify})
	require.NoError(t, err)
	_, err = e.Explain(context.Background(), 3, "x", "hi")
	assert.ErrorIs(t, err, ErrBadIndex)

	assert.Equal(t, 1, b.callCount())
	assert.Empty(t, e.Explanations())
}

func TestExplain_TranslateIncludesSource(t *testing.T) {
	var seen []model.Message
	b := &fakeBackend{respond: func(_ context.Context, msgs []model.Message) (string, error) {
		seen = msgs
		return "Because.", nil
	}}
	e := newEngine(t, b, Options{})

	text, err := e.ExplainMode(context.Background(), model.ModeTranslate, 0, "🌧️☔", "rainy day")
	require.NoError(t, err)
	assert.Equal(t, "Because.", text)
	require.Len(t, seen, 2)
	assert.Contains(t, seen[1].Content, `"rainy day"`)
	assert.Contains(t, seen[1].Content, `"🌧️☔"`)
}

func TestExplain_SavesToHistory(t *testing.T) {
	h := &fakeHistory{}
	b := &fakeBackend{respond: func(_ context.Context, msgs []model.Message) (string, error) {
		if strings.Contains(msgs[0].Content, "interpret") {
			return "explained", nil
		}
		return threeVariants, nil
	}}
	e := newEngine(t, b, Options{History: h})

	_, err := e.Generate(context.Background(), model.Request{Source: "hi", Mode: model.ModeEmojify})
	require.NoError(t, err)
	_, err = e.Explain(context.Background(), 2, "c", "hi")
	require.NoError(t, err)
	assert.Equal(t, "rec-1:explained", h.explanations[2])
}
