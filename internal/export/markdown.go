// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/Elephant333/emojify/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports history to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts generations to Markdown, newest first as given.
func (e *MarkdownExporter) Export(gens []storage.Generation) ([]byte, error) {
	if err := checkGenerations(gens); err != nil {
		return nil, err
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString("title: emojify history\n")
		sb.WriteString(fmt.Sprintf("generations: %d\n", len(gens)))
		if m := models(gens); len(m) > 0 {
			sb.WriteString(fmt.Sprintf("models: %s\n", escapeYAML(strings.Join(m, ", "))))
		}
		sb.WriteString(fmt.Sprintf("exported: %s\n", e.options.now().Format(time.RFC3339)))
		sb.WriteString("---\n\n")
	}

	sb.WriteString("# emojify history\n\n")

	for i := range gens {
		e.writeGeneration(&sb, &gens[i])
		if i < len(gens)-1 {
			sb.WriteString("---\n\n")
		}
	}
	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) writeGeneration(sb *strings.Builder, g *storage.Generation) {
	sb.WriteString(fmt.Sprintf("## %s <sub>%s</sub>\n\n", g.Mode, formatTimestamp(g.CreatedAt)))
	sb.WriteString(quote(g.Source))
	sb.WriteString("\n\n")

	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("- **ID**: `%s`\n", g.ID))
		sb.WriteString(fmt.Sprintf("- **Density**: %s, **Tone**: %s\n", g.Config.Density, escapeMarkdown(g.Config.Tone.Label())))
		model := g.Model
		if g.Provider != "" {
			model += " via " + g.Provider
		}
		sb.WriteString(fmt.Sprintf("- **Model**: %s\n\n", model))
	}

	for i, v := range g.Variants {
		line := fmt.Sprintf("%d. %s", i+1, escapeMarkdown(v.String()))
		if mark := ratingMark(g.Feedback[i]); mark != "" {
			line += " " + mark
		}
		sb.WriteString(line + "\n")
		if exp := g.Explanations[i]; exp != "" {
			sb.WriteString("   *" + escapeMarkdown(strings.ReplaceAll(exp, "\n", " ")) + "*\n")
		}
	}
	sb.WriteString("\n")
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING
// =============================================================================

// quote renders s as a Markdown blockquote, one "> " per line.
func quote(s string) string {
	lines := strings.Split(escapeMarkdown(s), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes a YAML scalar when it contains special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
