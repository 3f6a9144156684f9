// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Elephant333/emojify/internal/grapheme"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/prompt"
	"github.com/Elephant333/emojify/internal/util"
	"github.com/Elephant333/emojify/internal/variant"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend completes a list of role-tagged messages with the named model.
type Backend interface {
	Complete(ctx context.Context, messages []model.Message, modelName string) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, messages []model.Message, modelName string) (string, error)

// Complete calls f.
func (f BackendFunc) Complete(ctx context.Context, messages []model.Message, modelName string) (string, error) {
	return f(ctx, messages, modelName)
}

// Recorder receives metrics events. All methods must be safe for concurrent use.
type Recorder interface {
	GenerationStarted(ctx context.Context, mode model.Mode)
	GenerationFinished(ctx context.Context, mode model.Mode, outcome string, elapsed time.Duration)
	ExplanationFinished(ctx context.Context, mode model.Mode, outcome string, elapsed time.Duration)
}

// History persists successful generations and explanations.
type History interface {
	SaveGeneration(ctx context.Context, req model.Request, modelName string, variants []model.Variant) (string, error)
	SaveExplanation(ctx context.Context, recordID string, index int, text string) error
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures an Engine.
type Options struct {
	// Model is passed to the backend on every call.
	Model string

	// RequestTimeout bounds one generation backend call.
	RequestTimeout time.Duration

	// ExplainTimeout bounds one explanation backend call.
	ExplainTimeout time.Duration

	// Recorder receives metrics events (optional).
	Recorder Recorder

	// History stores successful results (optional).
	History History
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Model:          model.DefaultModel,
		RequestTimeout: 60 * time.Second,
		ExplainTimeout: 30 * time.Second,
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs generations and explanations and tracks their state.
type Engine struct {
	backend  Backend
	opts     Options
	recorder Recorder
	history  History

	requestSeq atomic.Uint64
	explainSeq atomic.Uint64

	mu           sync.Mutex
	modelName    string
	state        RequestState
	explanations Explanations
	subscribers  map[int]chan Snapshot
	nextSubID    int
}

// New creates an engine around backend. Zero option values fall back to
// DefaultOptions.
func New(backend Backend, opts Options) (*Engine, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	defaults := DefaultOptions()
	if opts.Model == "" {
		opts.Model = defaults.Model
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaults.RequestTimeout
	}
	if opts.ExplainTimeout <= 0 {
		opts.ExplainTimeout = defaults.ExplainTimeout
	}

	e := &Engine{
		backend:      backend,
		opts:         opts,
		recorder:     opts.Recorder,
		history:      opts.History,
		modelName:    opts.Model,
		explanations: Explanations{},
		subscribers:  make(map[int]chan Snapshot),
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}
	return e, nil
}

// Model returns the model name sent to the backend.
func (e *Engine) Model() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modelName
}

// SetModel changes the model for subsequent calls.
func (e *Engine) SetModel(name string) {
	if name == "" {
		return
	}
	e.mu.Lock()
	e.modelName = name
	e.mu.Unlock()
}

// =============================================================================
// GENERATION
// =============================================================================

// Result is the outcome of one successful generation.
type Result struct {
	// ID is the engine request id.
	ID uint64

	// RecordID is the history record id, empty when history is disabled or
	// the save failed.
	RecordID string

	Variants []model.Variant
}

// Generate runs one generation. Validation failures leave the state
// untouched and never reach the backend. If a newer Generate starts before
// this one finishes, this call's result is discarded and ErrSuperseded is
// returned.
func (e *Engine) Generate(ctx context.Context, req model.Request) ([]model.Variant, error) {
	res, err := e.GenerateResult(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Variants, nil
}

// GenerateResult is Generate, also returning the request and history ids of
// this call. Callers sharing one engine read the record id from here rather
// than from State, which a later request may already have replaced.
func (e *Engine) GenerateResult(ctx context.Context, req model.Request) (Result, error) {
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}

	msgs, err := prompt.Build(req)
	if err != nil {
		return Result{}, newValidationError(ErrUnknownMode, err, "%s", req.Mode)
	}

	id := e.requestSeq.Add(1)
	modelName := e.Model()
	if !e.update(func() bool {
		next, ok := e.state.Begin(id, req)
		e.state = next
		return ok
	}) {
		return Result{}, ErrSuperseded
	}

	e.recorder.GenerationStarted(ctx, req.Mode)
	start := time.Now()

	variants, err := e.run(ctx, id, req, msgs, modelName)
	if err != nil {
		if !e.update(func() bool {
			next, ok := e.state.Fail(id, err)
			e.state = next
			return ok
		}) {
			err = ErrSuperseded
		}
		e.recorder.GenerationFinished(ctx, req.Mode, Outcome(err), time.Since(start))
		return Result{}, err
	}

	if !e.update(func() bool {
		next, ok := e.state.Succeed(id, variants)
		if ok {
			e.state = next
			e.explanations = Explanations{}
		}
		return ok
	}) {
		log.Printf("GENERATE_STALE | id=%d mode=%s", id, req.Mode)
		e.recorder.GenerationFinished(ctx, req.Mode, Outcome(ErrSuperseded), time.Since(start))
		return Result{}, ErrSuperseded
	}
	e.recorder.GenerationFinished(ctx, req.Mode, Outcome(nil), time.Since(start))

	recordID := e.saveGeneration(ctx, id, req, modelName, variants)
	return Result{ID: id, RecordID: recordID, Variants: variants}, nil
}

// run performs the backend call, parse and post-processing for one request.
func (e *Engine) run(ctx context.Context, id uint64, req model.Request, msgs []model.Message, modelName string) ([]model.Variant, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.RequestTimeout)
	defer cancel()

	raw, err := e.backend.Complete(callCtx, msgs, modelName)
	if err != nil {
		log.Printf("GENERATE_BACKEND_FAILED | id=%d mode=%s model=%s err=%v", id, req.Mode, modelName, err)
		return nil, &GenerationError{Kind: BackendFailure, Cause: err}
	}

	variants, err := variant.Parse(raw, req.Mode)
	if err != nil {
		log.Printf("GENERATE_INVALID_REPLY | id=%d mode=%s err=%v raw=%q", id, req.Mode, err, util.TruncateRunes(raw, 200))
		return nil, &GenerationError{Kind: InvalidReply, Cause: err}
	}

	if req.Mode == model.ModeTranslate {
		limit := grapheme.SourceLen(req.Source)
		for i := range variants {
			variants[i].Text = grapheme.Truncate(variants[i].Text, limit)
		}
	}
	return variants, nil
}

// saveGeneration records a successful generation and returns its record id.
// The state only takes the id while request id is still current.
func (e *Engine) saveGeneration(ctx context.Context, id uint64, req model.Request, modelName string, variants []model.Variant) string {
	if e.history == nil {
		return ""
	}
	recordID, err := e.history.SaveGeneration(ctx, req, modelName, variants)
	if err != nil {
		log.Printf("HISTORY_SAVE_FAILED | id=%d err=%v", id, err)
		return ""
	}
	e.update(func() bool {
		next, ok := e.state.WithRecord(id, recordID)
		e.state = next
		return ok
	})
	return recordID
}

// validateRequest maps request validation to ValidationError reasons.
func validateRequest(req model.Request) error {
	if err := req.Validate(); err != nil {
		switch {
		case errors.Is(err, model.ErrEmptySource):
			return newValidationError(ErrEmptyInput, err, "source text is empty")
		case errors.Is(err, model.ErrSourceTooLong):
			return newValidationError(ErrSourceTooLong, err, "%d characters (max %d)", grapheme.SourceLen(req.Source), model.MaxSourceUnits)
		case errors.Is(err, model.ErrUnknownMode):
			return newValidationError(ErrUnknownMode, err, "%s", req.Mode)
		default:
			return newValidationError(ErrInvalidConfig, err, "%v", err)
		}
	}
	if req.Mode == model.ModeAnalyze && !grapheme.HasEmoji(req.Source) {
		return newValidationError(ErrMissingEmoji, nil, "analyze needs at least one emoji in the text")
	}
	return nil
}

// =============================================================================
// EXPLANATION
// =============================================================================

// Explain requests an explanation of one variant of the current generation.
// The mode is taken from the current request state.
func (e *Engine) Explain(ctx context.Context, index int, variantText, source string) (string, error) {
	e.mu.Lock()
	mode := e.state.Mode
	count := -1
	if e.state.Status == StatusSuccess {
		count = len(e.state.Variants)
	}
	e.mu.Unlock()

	if count >= 0 && index >= count {
		return "", newValidationError(ErrBadIndex, nil, "index %d, have %d variants", index, count)
	}
	return e.ExplainMode(ctx, mode, index, variantText, source)
}

// ExplainMode requests an explanation of variantText for an explicit mode.
// The state for index becomes PENDING immediately and TEXT or FAILED when the
// backend answers, unless a newer request for the same index, or a new
// successful generation, has replaced it in the meantime.
func (e *Engine) ExplainMode(ctx context.Context, mode model.Mode, index int, variantText, source string) (string, error) {
	if index < 0 {
		return "", newValidationError(ErrBadIndex, nil, "index %d", index)
	}
	if variantText == "" {
		return "", newValidationError(ErrEmptyInput, nil, "variant text is empty")
	}
	msgs, err := prompt.BuildExplanation(mode, variantText, source)
	if err != nil {
		if errors.Is(err, prompt.ErrNoExplanation) {
			return "", newValidationError(ErrNoExplanation, err, "%s", mode)
		}
		return "", newValidationError(ErrUnknownMode, err, "%s", mode)
	}

	token := e.explainSeq.Add(1)
	var recordID string
	modelName := e.Model()
	e.update(func() bool {
		recordID = e.state.RecordID
		e.explanations = e.explanations.Start(index, token)
		return true
	})

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, e.opts.ExplainTimeout)
	text, err := e.backend.Complete(callCtx, msgs, modelName)
	cancel()

	if err != nil {
		log.Printf("EXPLAIN_BACKEND_FAILED | index=%d mode=%s err=%v", index, mode, err)
		gerr := &GenerationError{Kind: BackendFailure, Cause: err}
		var result error = gerr
		if !e.update(func() bool {
			next, ok := e.explanations.Reject(index, token, gerr)
			e.explanations = next
			return ok
		}) {
			result = ErrSuperseded
		}
		e.recorder.ExplanationFinished(ctx, mode, Outcome(result), time.Since(start))
		return "", result
	}

	if !e.update(func() bool {
		next, ok := e.explanations.Resolve(index, token, text)
		e.explanations = next
		return ok
	}) {
		e.recorder.ExplanationFinished(ctx, mode, Outcome(ErrSuperseded), time.Since(start))
		return "", ErrSuperseded
	}
	e.recorder.ExplanationFinished(ctx, mode, Outcome(nil), time.Since(start))

	if e.history != nil && recordID != "" {
		if err := e.history.SaveExplanation(ctx, recordID, index, text); err != nil {
			log.Printf("HISTORY_EXPLANATION_FAILED | record=%s index=%d err=%v", recordID, index, err)
		}
	}
	return text, nil
}

// =============================================================================
// OBSERVATION
// =============================================================================

// State returns the current request state.
func (e *Engine) State() RequestState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Explanations returns the current explanation states.
func (e *Engine) Explanations() Explanations {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.explanations
}

// Snapshot returns the request and explanation state together.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot after every state
// change, and a function that ends the subscription. A slow reader only ever
// sees the latest snapshot.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subscribers, id)
			e.mu.Unlock()
			close(ch)
		})
	}
}

// update applies fn under the lock and publishes a snapshot when fn reports
// a change.
func (e *Engine) update(fn func() bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !fn() {
		return false
	}
	snap := e.snapshotLocked()
	for _, ch := range e.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	return true
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{Request: e.state, Explanations: e.explanations}
}

type nopRecorder struct{}

func (nopRecorder) GenerationStarted(context.Context, model.Mode) {}

func (nopRecorder) GenerationFinished(context.Context, model.Mode, string, time.Duration) {}

func (nopRecorder) ExplanationFinished(context.Context, model.Mode, string, time.Duration) {}
