// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/storage"
	"github.com/Elephant333/emojify/internal/telemetry"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const threeVariants = `{"1":"hi 👋","2":"hi 🙂","3":"hi 🎉"}`

// fakeBackend answers explanations with "explained", fails for sources
// containing "boom", and returns three variants otherwise.
func fakeBackend() engine.Backend {
	return engine.BackendFunc(func(_ context.Context, msgs []model.Message, _ string) (string, error) {
		if strings.Contains(msgs[0].Content, "interpret") {
			return "explained", nil
		}
		if strings.Contains(msgs[len(msgs)-1].Content, "boom") {
			return "", errors.New("upstream exploded: sk-secret")
		}
		return threeVariants, nil
	})
}

type testEnv struct {
	srv   *Server
	ts    *httptest.Server
	eng   *engine.Engine
	store *storage.Store
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	store, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "history.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider := telemetry.NewProvider()
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	metrics, err := telemetry.NewMetrics(provider.MeterProvider())
	require.NoError(t, err)

	eng, err := engine.New(fakeBackend(), engine.Options{
		Recorder: metrics,
		History:  storage.NewHistorySink(store, func() string { return "openai" }),
	})
	require.NoError(t, err)

	srv := New(eng, cfg).WithStore(store).WithMetrics(provider)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{srv: srv, ts: ts, eng: eng, store: store}
}

func (e *testEnv) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorCode(t *testing.T, resp *http.Response) (string, string) {
	t.Helper()
	var body errorBody
	decode(t, resp, &body)
	return body.Error.Code, body.Error.Message
}

// =============================================================================
// GENERATE
// =============================================================================

func TestGenerate_Success(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp := env.post(t, "/v1/generate", GenerateRequest{Text: "hi", Mode: "emojify", Density: "more", Tone: "happy"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body GenerateResponse
	decode(t, resp, &body)
	assert.Equal(t, model.ModeEmojify, body.Mode)
	require.Len(t, body.Variants, 3)
	assert.Equal(t, "hi 👋", body.Variants[0].Text)
	assert.NotEmpty(t, body.ID, "history record id is returned")

	gen, err := env.store.Get(context.Background(), body.ID)
	require.NoError(t, err)
	assert.Equal(t, "openai", gen.Provider)
	assert.Equal(t, model.DensityMore, gen.Config.Density)
}

func TestGenerate_UsesServerDefaults(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.srv.SetDefaults(model.Config{Density: model.DensityAbsurd, Tone: model.CustomTone("noir")})

	resp := env.post(t, "/v1/generate", GenerateRequest{Text: "hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body GenerateResponse
	decode(t, resp, &body)
	gen, err := env.store.Get(context.Background(), body.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DensityAbsurd, gen.Config.Density)
	assert.Equal(t, "noir", gen.Config.Tone.Label())
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
		msg    string
	}{
		{"empty text", GenerateRequest{Text: ""}, http.StatusBadRequest, "empty_input", "Type a message first"},
		{"too long", GenerateRequest{Text: strings.Repeat("a", 201)}, http.StatusBadRequest, "too_long", "Message too long"},
		{"unknown mode", GenerateRequest{Text: "hi", Mode: "interpretive-dance"}, http.StatusBadRequest, "unknown_mode", ""},
		{"bad density", GenerateRequest{Text: "hi", Density: "15"}, http.StatusBadRequest, "invalid_config", ""},
		{"long tone", GenerateRequest{Text: "hi", Tone: "twenty-one characters"}, http.StatusBadRequest, "invalid_config", ""},
		{"analyze without emoji", GenerateRequest{Text: "hi", Mode: "analyze"}, http.StatusBadRequest, "missing_emoji", ""},
		{"backend failure", GenerateRequest{Text: "boom"}, http.StatusBadGateway, "backend_failure", engine.FailureMessage},
		{"unknown field", map[string]string{"txt": "hi"}, http.StatusBadRequest, "bad_request", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Config{})
			resp := env.post(t, "/v1/generate", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			code, msg := errorCode(t, resp)
			assert.Equal(t, tt.code, code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, msg)
			}
			assert.NotContains(t, msg, "sk-secret")
		})
	}
}

func TestGenerate_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, Config{})
	huge := GenerateRequest{Text: strings.Repeat("x", MaxRequestBodySize)}
	resp := env.post(t, "/v1/generate", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

// =============================================================================
// EXPLAIN AND STATE
// =============================================================================

func TestExplain_CurrentGeneration(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp := env.post(t, "/v1/generate", GenerateRequest{Text: "hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var gen GenerateResponse
	decode(t, resp, &gen)

	resp = env.post(t, "/v1/explain", ExplainRequest{Index: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body ExplainResponse
	decode(t, resp, &body)
	assert.Equal(t, 1, body.Index)
	assert.Equal(t, "explained", body.Explanation)

	stored, err := env.store.Get(context.Background(), gen.ID)
	require.NoError(t, err)
	assert.Equal(t, "explained", stored.Explanations[1])

	resp = env.get(t, "/v1/state")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap struct {
		Request struct {
			Status   string   `json:"status"`
			Mode     string   `json:"mode"`
			Variants []string `json:"variants"`
		} `json:"request"`
		Explanations map[string]struct {
			Status string `json:"status"`
			Text   string `json:"text"`
		} `json:"explanations"`
	}
	decode(t, resp, &snap)
	assert.Equal(t, "success", snap.Request.Status)
	assert.Equal(t, "emojify", snap.Request.Mode)
	assert.Len(t, snap.Request.Variants, 3)
	assert.Equal(t, "explained", snap.Explanations["1"].Text)
}

func TestExplain_ExplicitVariant(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp := env.post(t, "/v1/explain", ExplainRequest{Index: 0, Variant: "I 🍕 you", Source: "I love you", Mode: "translate"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExplain_Errors(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp := env.post(t, "/v1/explain", ExplainRequest{Index: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	code, _ := errorCode(t, resp)
	assert.Equal(t, "bad_index", code)

	resp = env.post(t, "/v1/explain", ExplainRequest{Index: 0, Variant: "🐶 Dog", Mode: "search"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	code, _ = errorCode(t, resp)
	assert.Equal(t, "no_explanation", code)
}

// =============================================================================
// HISTORY, FEEDBACK, METRICS
// =============================================================================

func TestHistoryAndFeedback(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp := env.post(t, "/v1/generate", GenerateRequest{Text: "hi", Mode: "translate"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var gen GenerateResponse
	decode(t, resp, &gen)

	resp = env.get(t, "/v1/history?mode=translate&limit=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Generations []storage.Generation `json:"generations"`
	}
	decode(t, resp, &list)
	require.Len(t, list.Generations, 1)
	assert.Equal(t, gen.ID, list.Generations[0].ID)

	resp = env.get(t, "/v1/history?mode=search")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	assert.Empty(t, list.Generations)

	resp = env.post(t, "/v1/feedback", FeedbackRequest{ID: gen.ID, Index: 2, Rating: "up"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/v1/history/"+gen.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stored storage.Generation
	decode(t, resp, &stored)
	assert.Equal(t, storage.RatingUp, stored.Feedback[2])

	resp = env.post(t, "/v1/feedback", FeedbackRequest{ID: gen.ID, Index: 7, Rating: "down"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.post(t, "/v1/feedback", FeedbackRequest{ID: gen.ID, Index: 0, Rating: "meh"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.post(t, "/v1/feedback", FeedbackRequest{ID: "missing", Index: 0, Rating: "up"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.get(t, "/v1/history/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistory_Disabled(t *testing.T) {
	eng, err := engine.New(fakeBackend(), engine.Options{})
	require.NoError(t, err)
	ts := httptest.NewServer(New(eng, Config{}).Handler())
	defer ts.Close()

	for _, path := range []string{"/v1/history", "/v1/metrics"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.post(t, "/v1/generate", GenerateRequest{Text: "hi"})
	env.post(t, "/v1/generate", GenerateRequest{Text: "boom"})

	resp := env.get(t, "/v1/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Metrics []telemetry.Series `json:"metrics"`
	}
	decode(t, resp, &body)

	assert.Equal(t, 1.0, telemetry.Total(body.Metrics, telemetry.MetricGenerations, map[string]string{"outcome": "success"}))
	assert.Equal(t, 1.0, telemetry.Total(body.Metrics, telemetry.MetricGenerations, map[string]string{"outcome": "backend_failure"}))
}

// =============================================================================
// HEALTH AND MIDDLEWARE
// =============================================================================

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.srv.WithHealthCheck("backend", func(context.Context) error { return nil })

	resp := env.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body HealthResponse
	decode(t, resp, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, Version, body.Version)
	assert.Equal(t, "ok", body.Checks["backend"])
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	env.srv.WithHealthCheck("ollama", func(context.Context) error { return errors.New("not running") })
	resp = env.get(t, "/health")
	decode(t, resp, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "not running", body.Checks["ollama"])
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, Config{BearerToken: "s3cret"})

	resp := env.get(t, "/v1/state")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/v1/state", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health stays open")
}

func TestValidateBearerToken(t *testing.T) {
	assert.True(t, ValidateBearerToken("abc", "abc"))
	assert.False(t, ValidateBearerToken("abc", "abd"))
	assert.False(t, ValidateBearerToken("", ""))
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestEnv(t, Config{RateLimitPerMinute: 2})

	assert.Equal(t, http.StatusOK, env.get(t, "/v1/state").StatusCode)
	assert.Equal(t, http.StatusOK, env.get(t, "/v1/state").StatusCode)

	resp := env.get(t, "/v1/state")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	assert.Equal(t, http.StatusOK, env.get(t, "/health").StatusCode)
}

func TestRateLimiter_PerClientAndCleanup(t *testing.T) {
	rl := NewRateLimiter(1)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per client")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "bucket refills")

	now = now.Add(clientIdleTTL + 2*time.Minute)
	rl.Allow("10.0.0.3")
	assert.Equal(t, 1, rl.Clients(), "idle buckets are dropped")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.9:1234", "", "203.0.113.9"},
		{"spoofed header ignored", "203.0.113.9:1234", "1.2.3.4", "203.0.113.9"},
		{"trusted proxy", "127.0.0.1:9999", "198.51.100.7, 10.0.0.1", "198.51.100.7"},
		{"trusted proxy bad header", "10.1.2.3:80", "not-an-ip", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

// =============================================================================
// EVENTS
// =============================================================================

func TestEvents_StreamsSnapshots(t *testing.T) {
	env := newTestEnv(t, Config{})

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	type snapshot struct {
		Request struct {
			Status string `json:"status"`
		} `json:"request"`
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "idle", first.Request.Status)

	resp := env.post(t, "/v1/generate", GenerateRequest{Text: "hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for {
		var snap snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		if snap.Request.Status == "success" {
			break
		}
		assert.Equal(t, "loading", snap.Request.Status)
	}
}

func TestEvents_RejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t, Config{})
	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/v1/events"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
