// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/prompt"
	"github.com/Elephant333/emojify/internal/storage"
)

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

// GenerateRequest is the body of POST /v1/generate. Density and tone fall
// back to the server defaults when empty.
type GenerateRequest struct {
	Text    string `json:"text"`
	Mode    string `json:"mode"`
	Density string `json:"density,omitempty"`
	Tone    string `json:"tone,omitempty"`
}

// GenerateResponse is the body of a successful generation.
type GenerateResponse struct {
	// ID is the history record id, empty when history is disabled.
	ID       string          `json:"id,omitempty"`
	Mode     model.Mode      `json:"mode"`
	Variants []model.Variant `json:"variants"`
}

// ExplainRequest is the body of POST /v1/explain. With Variant empty, the
// variant at Index of the current generation is explained.
type ExplainRequest struct {
	Index   int    `json:"index"`
	Variant string `json:"variant,omitempty"`
	Source  string `json:"source,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// ExplainResponse carries one explanation.
type ExplainResponse struct {
	Index       int    `json:"index"`
	Explanation string `json:"explanation"`
}

// FeedbackRequest is the body of POST /v1/feedback.
type FeedbackRequest struct {
	ID     string `json:"id"`
	Index  int    `json:"index"`
	Rating string `json:"rating"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ============================================================================
// GENERATION
// ============================================================================

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body GenerateRequest
	if !decodeBody(w, r, &body) {
		return
	}

	req := model.Request{Source: body.Text, Config: s.getDefaults()}
	if body.Mode != "" {
		mode, err := model.ParseMode(body.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown_mode", "Unknown mode")
			return
		}
		req.Mode = mode
	}
	if body.Density != "" {
		density, err := model.ParseDensity(body.Density)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_config", engine.UserMessage(engine.ErrInvalidConfig))
			return
		}
		req.Config.Density = density
	}
	if body.Tone != "" {
		req.Config.Tone = model.ParseTone(body.Tone)
	}
	req.Config = prompt.ScopeConfig(req.Mode, req.Config)

	res, err := s.engine.GenerateResult(r.Context(), req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{ID: res.RecordID, Mode: req.Mode, Variants: res.Variants})
}

// ============================================================================
// EXPLANATION
// ============================================================================

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var body ExplainRequest
	if !decodeBody(w, r, &body) {
		return
	}

	variant, source := body.Variant, body.Source
	if variant == "" {
		state := s.engine.State()
		if state.Status != engine.StatusSuccess || body.Index < 0 || body.Index >= len(state.Variants) {
			s.writeEngineError(w, &engine.ValidationError{Reason: engine.ErrBadIndex})
			return
		}
		variant = state.Variants[body.Index].String()
		if source == "" {
			source = state.Source
		}
	}

	var (
		text string
		err  error
	)
	if body.Mode == "" {
		text, err = s.engine.Explain(r.Context(), body.Index, variant, source)
	} else {
		mode, perr := model.ParseMode(body.Mode)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "unknown_mode", "Unknown mode")
			return
		}
		text, err = s.engine.ExplainMode(r.Context(), mode, body.Index, variant, source)
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExplainResponse{Index: body.Index, Explanation: text})
}

// ============================================================================
// STATE
// ============================================================================

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// ============================================================================
// HISTORY AND FEEDBACK
// ============================================================================

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	store := s.getStore()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "history_disabled", "History is disabled")
		return
	}

	opts := storage.ListOptions{}
	if raw := r.URL.Query().Get("mode"); raw != "" {
		mode, err := model.ParseMode(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown_mode", "Unknown mode")
			return
		}
		opts.Mode = &mode
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "bad_limit", "limit must be a non-negative integer")
			return
		}
		opts.Limit = limit
	}

	gens, err := store.List(r.Context(), opts)
	if err != nil {
		log.Printf("HISTORY_LIST_FAILED | err=%v", err)
		writeError(w, http.StatusInternalServerError, "internal", "Could not read history")
		return
	}
	if gens == nil {
		gens = []storage.Generation{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"generations": gens})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	store := s.getStore()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "history_disabled", "History is disabled")
		return
	}
	gen, err := store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "No such generation")
		return
	}
	if err != nil {
		log.Printf("HISTORY_GET_FAILED | id=%s err=%v", r.PathValue("id"), err)
		writeError(w, http.StatusInternalServerError, "internal", "Could not read history")
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	store := s.getStore()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "history_disabled", "History is disabled")
		return
	}
	var body FeedbackRequest
	if !decodeBody(w, r, &body) {
		return
	}
	rating, err := storage.ParseRating(body.Rating)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rating", "rating must be up, down or none")
		return
	}

	err = store.SetFeedback(r.Context(), body.ID, body.Index, rating)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": body.ID, "index": body.Index, "rating": rating})
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "No such generation")
	case errors.Is(err, storage.ErrBadIndex):
		writeError(w, http.StatusBadRequest, "bad_index", engine.UserMessage(engine.ErrBadIndex))
	default:
		log.Printf("FEEDBACK_FAILED | id=%s index=%d err=%v", body.ID, body.Index, err)
		writeError(w, http.StatusInternalServerError, "internal", "Could not save feedback")
	}
}

// ============================================================================
// METRICS AND HEALTH
// ============================================================================

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	provider := s.metrics
	s.mu.RUnlock()
	if provider == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics_disabled", "Metrics are disabled")
		return
	}
	series, err := provider.Snapshot(r.Context())
	if err != nil {
		log.Printf("METRICS_COLLECT_FAILED | err=%v", err)
		writeError(w, http.StatusInternalServerError, "internal", "Could not collect metrics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"metrics": series})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checks := make(map[string]HealthCheck, len(s.checks))
	for name, check := range s.checks {
		checks[name] = check
	}
	s.mu.RUnlock()

	resp := HealthResponse{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}
	if len(checks) > 0 {
		resp.Checks = make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// HELPERS
// ============================================================================

// decodeBody reads a bounded JSON body, writing a 400 or 413 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "Request body too large")
			return false
		}
		log.Printf("HTTP_BAD_BODY | path=%s err=%v", r.URL.Path, err)
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request format")
		return false
	}
	return true
}

// writeEngineError maps engine errors to status codes. Backend causes are
// logged by the engine and never sent to clients.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	msg := engine.UserMessage(err)
	switch {
	case errors.Is(err, engine.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded", "A newer request replaced this one")
	case engine.IsValidation(err):
		writeError(w, http.StatusBadRequest, validationCode(err), msg)
	case engine.IsTimeout(err):
		writeError(w, http.StatusGatewayTimeout, "timeout", msg)
	case errors.Is(err, engine.ErrInvalidReply):
		writeError(w, http.StatusBadGateway, "invalid_reply", msg)
	default:
		writeError(w, http.StatusBadGateway, "backend_failure", msg)
	}
}

func validationCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, engine.ErrSourceTooLong):
		return "too_long"
	case errors.Is(err, engine.ErrMissingEmoji):
		return "missing_emoji"
	case errors.Is(err, engine.ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, engine.ErrNoExplanation):
		return "no_explanation"
	case errors.Is(err, engine.ErrBadIndex):
		return "bad_index"
	default:
		return "unknown_mode"
	}
}
