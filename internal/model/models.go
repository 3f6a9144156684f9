// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-3.5-turbo"

// DefaultLocalModel is the Ollama model used when none is configured.
const DefaultLocalModel = "llama3.2"

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes a chat model a backend can serve.
type ModelInfo struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Provider is ProviderOpenAI or ProviderOllama
	Provider string `json:"provider"`

	// CostPer1K is the cost per 1000 tokens in dollars (0 for local models)
	CostPer1K float64 `json:"cost_per_1k"`

	// JSONReliable marks models that follow the numbered-key JSON contract
	// without markdown fences in practice.
	JSONReliable bool `json:"json_reliable"`
}

// Models is the registry of known models keyed by ID.
var Models = map[string]ModelInfo{
	"gpt-3.5-turbo": {
		ID:           "gpt-3.5-turbo",
		Name:         "GPT-3.5 Turbo",
		Provider:     ProviderOpenAI,
		CostPer1K:    0.0005,
		JSONReliable: true,
	},
	"gpt-4o-mini": {
		ID:           "gpt-4o-mini",
		Name:         "GPT-4o Mini",
		Provider:     ProviderOpenAI,
		CostPer1K:    0.00015,
		JSONReliable: true,
	},
	"gpt-4o": {
		ID:           "gpt-4o",
		Name:         "GPT-4o",
		Provider:     ProviderOpenAI,
		CostPer1K:    0.0025,
		JSONReliable: true,
	},
	"llama3.2": {
		ID:       "llama3.2",
		Name:     "Llama 3.2",
		Provider: ProviderOllama,
	},
	"qwen2.5": {
		ID:           "qwen2.5",
		Name:         "Qwen 2.5",
		Provider:     ProviderOllama,
		JSONReliable: true,
	},
	"mistral": {
		ID:       "mistral",
		Name:     "Mistral",
		Provider: ProviderOllama,
	},
}

// CostString returns a formatted cost string.
func (m ModelInfo) CostString() string {
	if m.CostPer1K == 0 {
		return "Free"
	}
	if m.CostPer1K < 0.001 {
		return fmt.Sprintf("$%.5f/1K", m.CostPer1K)
	}
	return fmt.Sprintf("$%.4f/1K", m.CostPer1K)
}

// =============================================================================
// MODEL LOOKUP FUNCTIONS
// =============================================================================

// GetModelInfo looks up a model by ID, falling back to a case-insensitive
// prefix match so tags like "llama3.2:3b" resolve.
func GetModelInfo(id string) (ModelInfo, bool) {
	if info, ok := Models[id]; ok {
		return info, true
	}
	lower := strings.ToLower(id)
	for _, key := range ModelIDs() {
		if strings.HasPrefix(lower, key+":") {
			return Models[key], true
		}
	}
	return ModelInfo{}, false
}

// GetModelsByProvider returns the models of one provider sorted by ID.
func GetModelsByProvider(provider string) []ModelInfo {
	result := []ModelInfo{}
	for _, id := range ModelIDs() {
		if info := Models[id]; strings.EqualFold(info.Provider, provider) {
			result = append(result, info)
		}
	}
	return result
}

// ModelIDs returns a sorted slice of all registered model IDs.
func ModelIDs() []string {
	ids := make([]string, 0, len(Models))
	for id := range Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
