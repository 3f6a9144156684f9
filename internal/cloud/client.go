// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Elephant333/emojify/internal/model"
)

// Configuration constants for the chat completions API.
const (
	// DefaultBaseURL is the OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of attempts for retryable errors.
	DefaultMaxRetries = 3

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second

	// MaxResponseSize caps the bytes read from a response body.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "emojify/1.0"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotConfigured
	ErrTypeAuth
	ErrTypeCredits
	ErrTypeModelNotFound
	ErrTypeRateLimited
	ErrTypeServer
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// String returns a short name for the type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeNotConfigured:
		return "not_configured"
	case ErrTypeAuth:
		return "auth"
	case ErrTypeCredits:
		return "credits"
	case ErrTypeModelNotFound:
		return "model_not_found"
	case ErrTypeRateLimited:
		return "rate_limited"
	case ErrTypeServer:
		return "server"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// ClientError is a failed chat completions call.
type ClientError struct {
	Type    ErrorType
	Status  int
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches another ClientError of the same type, so the sentinels below
// work with errors.Is.
func (e *ClientError) Is(target error) bool {
	var t *ClientError
	if !errors.As(target, &t) {
		return false
	}
	return t == e || (t.Type == e.Type && t.Message == "")
}

// Sentinel errors for easy checking.
var (
	ErrNotConfigured = &ClientError{Type: ErrTypeNotConfigured}
	ErrAuthFailed    = &ClientError{Type: ErrTypeAuth}
	ErrNoCredits     = &ClientError{Type: ErrTypeCredits}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound}
	ErrRateLimited   = &ClientError{Type: ErrTypeRateLimited}
	ErrServer        = &ClientError{Type: ErrTypeServer}
)

// apiErrorResponse is the error body returned by OpenAI-compatible servers.
type apiErrorResponse struct {
	Error struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatRequest is the request body for /chat/completions.
type ChatRequest struct {
	Model       string          `json:"model"`
	Messages    []model.Message `json:"messages"`
	Stream      bool            `json:"stream"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

// ChatResponse is the response body from /chat/completions.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      model.Message `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Content returns the first choice's content, or "" when there is none.
func (r *ChatResponse) Content() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// =============================================================================
// CLIENT
// =============================================================================

// Config holds client settings. Zero values take the defaults.
type Config struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64

	// RetryDelay is the base backoff delay; attempts wait 2x, 4x, capped.
	RetryDelay time.Duration
}

// Client talks to an OpenAI-compatible chat completions endpoint. It is safe
// for concurrent use.
type Client struct {
	apiKey      string
	baseURL     string
	maxRetries  int
	retryDelay  time.Duration
	temperature float64
	httpClient  *http.Client
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = retryBaseDelay
	}

	return &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// BaseURL returns the endpoint base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key, safe to
// log.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// Complete sends messages to modelName and returns the first choice's
// content. Retryable failures (rate limiting, 5xx) are retried with capped
// exponential backoff until ctx is done.
func (c *Client) Complete(ctx context.Context, messages []model.Message, modelName string) (string, error) {
	resp, err := c.Chat(ctx, ChatRequest{Model: modelName, Messages: messages, Temperature: c.temperature})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "response has no choices"}
	}
	return resp.Content(), nil
}

// Chat performs a chat completions request with retries.
func (c *Client) Chat(ctx context.Context, reqBody ChatRequest) (*ChatResponse, error) {
	if !c.IsConfigured() {
		return nil, &ClientError{Type: ErrTypeNotConfigured, Message: "API key not configured"}
	}
	reqBody.Stream = false

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		resp, err := c.doRequest(ctx, reqBody)
		if err == nil {
			return resp, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
		log.Printf("CLOUD_RETRY | attempt=%d model=%s err=%v", attempt+1, reqBody.Model, err)
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP attempt.
func (c *Client) doRequest(ctx context.Context, reqBody ChatRequest) (*ChatResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	log.Printf("CLOUD_RESPONSE | status=%d model=%s duration=%v", resp.StatusCode, reqBody.Model, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromStatus(resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to parse response", Cause: err}
	}
	return &chatResp, nil
}

// readResponse reads at most MaxResponseSize bytes of the body.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to read response", Cause: err}
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: fmt.Sprintf("response exceeded maximum size of %d bytes", MaxResponseSize),
		}
	}
	return body, nil
}

// errorFromStatus maps an HTTP error response to a ClientError.
func errorFromStatus(status int, body []byte) error {
	message := http.StatusText(status)
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	errType := ErrTypeUnknown
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		errType = ErrTypeAuth
	case status == http.StatusPaymentRequired:
		errType = ErrTypeCredits
	case status == http.StatusNotFound:
		errType = ErrTypeModelNotFound
	case status == http.StatusTooManyRequests:
		errType = ErrTypeRateLimited
	case status >= 500:
		errType = ErrTypeServer
	}
	return &ClientError{Type: errType, Status: status, Message: message}
}

// isRetryable reports whether another attempt could succeed.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Type == ErrTypeRateLimited || ce.Type == ErrTypeServer
}

// backoff returns the delay before the given attempt.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.retryDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
