// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - The --json envelope shared by every command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/storage"
)

// JSONResponse is the envelope written by every command under --json.
type JSONResponse struct {
	Success bool `json:"success"`

	// Command is the command that was executed
	Command string `json:"command"`

	Data interface{} `json:"data"`

	// Error is null on success
	Error *string `json:"error"`

	// Timestamp is RFC3339 UTC
	Timestamp string `json:"timestamp"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Command:   command,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	return NewJSONErrorResponseStr(command, err.Error())
}

// NewJSONErrorResponseStr creates a new error JSON response from a string.
func NewJSONErrorResponseStr(command string, errMsg string) *JSONResponse {
	return &JSONResponse{
		Success:   false,
		Command:   command,
		Error:     &errMsg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// OutputJSON runs handler and, in JSON mode, wraps its data in an envelope.
// Errors are left for the caller to display.
func OutputJSON(w io.Writer, jsonMode bool, command string, handler func() (interface{}, error)) error {
	data, err := handler()
	if err != nil || !jsonMode {
		return err
	}
	return NewJSONResponse(command, data).Print(w)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// GenerateData is the payload of a generation command.
type GenerateData struct {
	ID          string          `json:"id,omitempty"`
	Mode        model.Mode      `json:"mode"`
	Source      string          `json:"source"`
	Config      model.Config    `json:"config"`
	Model       string          `json:"model"`
	Provider    string          `json:"provider,omitempty"`
	Variants    []model.Variant `json:"variants"`
	Explanation *ExplainData    `json:"explanation,omitempty"`
	Copied      *int            `json:"copied,omitempty"`
	Raw         string          `json:"raw,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// ExplainData is one explanation; Variant is 1-based.
type ExplainData struct {
	ID          string `json:"id,omitempty"`
	Variant     int    `json:"variant"`
	Text        string `json:"text"`
	Explanation string `json:"explanation"`
}

// FeedbackData is the payload of the feedback command.
type FeedbackData struct {
	ID      string         `json:"id"`
	Variant int            `json:"variant"`
	Rating  storage.Rating `json:"rating"`
}

// HistoryListData is the payload of history list.
type HistoryListData struct {
	Generations []storage.Generation `json:"generations"`
}

// ExportData is the payload of history export.
type ExportData struct {
	Path   string `json:"path,omitempty"`
	Format string `json:"format"`
	Count  int    `json:"count"`
}

// ConfigData is the payload of config show; secrets are masked.
type ConfigData struct {
	Path     string            `json:"config_path"`
	Settings map[string]string `json:"settings"`
}

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}
