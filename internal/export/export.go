// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/Elephant333/emojify/internal/storage"
	"github.com/Elephant333/emojify/internal/util"
)

// ErrNothingToExport is returned for an empty generation list.
var ErrNothingToExport = errors.New("no generations to export")

// ErrUnknownFormat is returned by ForFormat.
var ErrUnknownFormat = errors.New("unknown export format")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for history exporters.
type Exporter interface {
	// Export converts generations to the target format.
	Export(gens []storage.Generation) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".md".
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// IncludeMetadata adds a header with export time, count and models.
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark").
	// Default: "dark"
	Theme string

	// Now is the clock used for timestamps; tests replace it.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		Theme:           "dark",
		Now:             time.Now,
	}
}

func (o *Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Formats lists the names accepted by ForFormat.
func Formats() []string {
	return []string{"md", "json", "html"}
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q (use %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports generations to a new timestamped file in
// opts.OutputDir and returns its path.
func ExportToFile(gens []storage.Generation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(gens)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	filename := fmt.Sprintf("emojify_history_%s%s", opts.now().Format("20060102_150405"), exporter.FileExtension())
	outputPath := filepath.Join(dir, filename)

	if err := util.AtomicWriteFileWithDir(outputPath, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// Write exports generations to w, such as stdout.
func Write(w io.Writer, gens []storage.Generation, exporter Exporter) error {
	content, err := exporter.Export(gens)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	_, err = w.Write(content)
	return err
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func checkGenerations(gens []storage.Generation) error {
	if len(gens) == 0 {
		return ErrNothingToExport
	}
	for i, g := range gens {
		if g.CreatedAt.IsZero() {
			return fmt.Errorf("generation %d (%s) has no creation time", i, g.ID)
		}
	}
	return nil
}

// models returns the distinct model names in order of first use.
func models(gens []storage.Generation) []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range gens {
		if g.Model != "" && !seen[g.Model] {
			seen[g.Model] = true
			out = append(out, g.Model)
		}
	}
	return out
}

// ratingMark is the thumbs marker for a variant, or "".
func ratingMark(r storage.Rating) string {
	switch r {
	case storage.RatingUp:
		return "👍"
	case storage.RatingDown:
		return "👎"
	default:
		return ""
	}
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
