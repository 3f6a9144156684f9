// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/Elephant333/emojify/internal/storage"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports history to JSON. The generations keep their stored
// shape so an export can be read back with encoding/json.
type JSONExporter struct {
	options *Options
}

// jsonDocument is the top-level JSON export.
type jsonDocument struct {
	ExportedAt  time.Time            `json:"exported_at"`
	Count       int                  `json:"count"`
	Generations []storage.Generation `json:"generations"`
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts generations to indented JSON.
func (e *JSONExporter) Export(gens []storage.Generation) ([]byte, error) {
	if err := checkGenerations(gens); err != nil {
		return nil, err
	}
	doc := jsonDocument{
		ExportedAt:  e.options.now().UTC(),
		Count:       len(gens),
		Generations: gens,
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
