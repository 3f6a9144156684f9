// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/model"
)

// HistorySink adapts a Store to engine.History.
type HistorySink struct {
	store    *Store
	provider func() string
}

var _ engine.History = (*HistorySink)(nil)

// NewHistorySink returns a sink writing to store. provider, if non-nil,
// names the backend that served the generation being saved.
func NewHistorySink(store *Store, provider func() string) *HistorySink {
	return &HistorySink{store: store, provider: provider}
}

// SaveGeneration implements engine.History.
func (h *HistorySink) SaveGeneration(ctx context.Context, req model.Request, modelName string, variants []model.Variant) (string, error) {
	g := Generation{
		Mode:     req.Mode,
		Source:   req.Source,
		Config:   req.Config,
		Model:    modelName,
		Variants: variants,
	}
	if h.provider != nil {
		g.Provider = h.provider()
	}
	return h.store.SaveGeneration(ctx, g)
}

// SaveExplanation implements engine.History.
func (h *HistorySink) SaveExplanation(ctx context.Context, recordID string, index int, text string) error {
	return h.store.SaveExplanation(ctx, recordID, index, text)
}
