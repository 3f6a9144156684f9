// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"github.com/Elephant333/emojify/internal/model"
)

// =============================================================================
// REQUEST STATUS
// =============================================================================

// Status is the lifecycle position of the current generation.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// =============================================================================
// REQUEST STATE
// =============================================================================

// RequestState is the engine's top-level generation state. Values are
// immutable; transitions return a new value.
type RequestState struct {
	Status   Status          `json:"status"`
	ID       uint64          `json:"id"`
	Mode     model.Mode      `json:"mode"`
	Source   string          `json:"source,omitempty"`
	Variants []model.Variant `json:"variants,omitempty"`
	Err      error           `json:"-"`

	// RecordID is the history record of a successful generation, if stored.
	RecordID string `json:"record_id,omitempty"`
}

// Begin moves to LOADING for request id. Ids must increase; an id at or below
// the current one is refused.
func (s RequestState) Begin(id uint64, req model.Request) (RequestState, bool) {
	if id <= s.ID {
		return s, false
	}
	return RequestState{
		Status: StatusLoading,
		ID:     id,
		Mode:   req.Mode,
		Source: req.Source,
	}, true
}

// Succeed moves the loading request id to SUCCESS. Any other id is stale.
func (s RequestState) Succeed(id uint64, variants []model.Variant) (RequestState, bool) {
	if !s.accepts(id) {
		return s, false
	}
	next := s
	next.Status = StatusSuccess
	next.Variants = append([]model.Variant(nil), variants...)
	next.Err = nil
	return next, true
}

// Fail moves the loading request id to ERROR. Any other id is stale.
func (s RequestState) Fail(id uint64, err error) (RequestState, bool) {
	if !s.accepts(id) {
		return s, false
	}
	next := s
	next.Status = StatusError
	next.Variants = nil
	next.Err = err
	return next, true
}

// WithRecord attaches a history record id to a successful request id.
func (s RequestState) WithRecord(id uint64, recordID string) (RequestState, bool) {
	if s.ID != id || s.Status != StatusSuccess {
		return s, false
	}
	next := s
	next.RecordID = recordID
	return next, true
}

func (s RequestState) accepts(id uint64) bool {
	return s.Status == StatusLoading && s.ID == id
}

// =============================================================================
// EXPLANATION STATE
// =============================================================================

// ExplanationStatus is the lifecycle position of one variant's explanation.
type ExplanationStatus int

const (
	ExplanationNone ExplanationStatus = iota
	ExplanationPending
	ExplanationText
	ExplanationFailed
)

// String returns the lowercase status name.
func (s ExplanationStatus) String() string {
	switch s {
	case ExplanationPending:
		return "pending"
	case ExplanationText:
		return "text"
	case ExplanationFailed:
		return "failed"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ExplanationStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Explanation is the state of one variant's explanation.
type Explanation struct {
	Status ExplanationStatus `json:"status"`
	Text   string            `json:"text,omitempty"`
	Err    error             `json:"-"`

	token uint64
}

// Explanations maps variant index to explanation state. A missing index is
// ExplanationNone. Values are treated as immutable; transitions copy.
type Explanations map[int]Explanation

// Get returns the state for index.
func (e Explanations) Get(index int) Explanation {
	return e[index]
}

// Start marks index PENDING under token, replacing whatever was there.
func (e Explanations) Start(index int, token uint64) Explanations {
	next := e.clone()
	next[index] = Explanation{Status: ExplanationPending, token: token}
	return next
}

// Resolve records text for index if token is still the latest for it.
func (e Explanations) Resolve(index int, token uint64, text string) (Explanations, bool) {
	if !e.accepts(index, token) {
		return e, false
	}
	next := e.clone()
	next[index] = Explanation{Status: ExplanationText, Text: text, token: token}
	return next, true
}

// Reject records a failure for index if token is still the latest for it.
func (e Explanations) Reject(index int, token uint64, err error) (Explanations, bool) {
	if !e.accepts(index, token) {
		return e, false
	}
	next := e.clone()
	next[index] = Explanation{Status: ExplanationFailed, Err: err, token: token}
	return next, true
}

func (e Explanations) accepts(index int, token uint64) bool {
	cur, ok := e[index]
	return ok && cur.Status == ExplanationPending && cur.token == token
}

func (e Explanations) clone() Explanations {
	next := make(Explanations, len(e)+1)
	for k, v := range e {
		next[k] = v
	}
	return next
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a consistent copy of all engine state.
type Snapshot struct {
	Request      RequestState `json:"request"`
	Explanations Explanations `json:"explanations"`
}
