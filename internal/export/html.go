// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Elephant333/emojify/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports history to a self-contained HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Theme != "light" {
		opts.Theme = "dark"
	}
	return &HTMLExporter{options: opts}
}

// Export converts generations to HTML.
func (e *HTMLExporter) Export(gens []storage.Generation) ([]byte, error) {
	if err := checkGenerations(gens); err != nil {
		return nil, err
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString("    <title>emojify history</title>\n")
	sb.WriteString("    <meta name=\"generator\" content=\"emojify\">\n")
	sb.WriteString(e.css())
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	sb.WriteString("        <header><h1>emojify history</h1>\n")
	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("            <p class=\"meta\">%d generations", len(gens)))
		if m := models(gens); len(m) > 0 {
			sb.WriteString(" &middot; " + html.EscapeString(strings.Join(m, ", ")))
		}
		sb.WriteString("</p>\n")
	}
	sb.WriteString("        </header>\n")

	sb.WriteString("        <main>\n")
	for i := range gens {
		sb.WriteString(e.renderGeneration(&gens[i]))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"meta\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported on %s</p>\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderGeneration(g *storage.Generation) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("            <section class=\"generation mode-%s\" id=\"%s\">\n", g.Mode, html.EscapeString(g.ID)))
	sb.WriteString(fmt.Sprintf("                <h2>%s <time datetime=\"%s\">%s</time></h2>\n",
		g.Mode, g.CreatedAt.Format(time.RFC3339), formatTimestamp(g.CreatedAt)))
	sb.WriteString(fmt.Sprintf("                <blockquote>%s</blockquote>\n", html.EscapeString(g.Source)))

	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("                <p class=\"meta\">density %s &middot; tone %s &middot; %s</p>\n",
			g.Config.Density, html.EscapeString(g.Config.Tone.Label()), html.EscapeString(g.Model)))
	}

	sb.WriteString("                <ol>\n")
	for i, v := range g.Variants {
		sb.WriteString("                    <li>")
		sb.WriteString(html.EscapeString(v.String()))
		if mark := ratingMark(g.Feedback[i]); mark != "" {
			sb.WriteString(" <span class=\"rating\">" + mark + "</span>")
		}
		if exp := g.Explanations[i]; exp != "" {
			sb.WriteString("<p class=\"explanation\">" + html.EscapeString(exp) + "</p>")
		}
		sb.WriteString("</li>\n")
	}
	sb.WriteString("                </ol>\n")
	sb.WriteString("            </section>\n")
	return sb.String()
}

func (e *HTMLExporter) css() string {
	return `    <style>
        body { font-family: system-ui, sans-serif; margin: 0; line-height: 1.5; }
        .dark-theme { background: #1a1b26; color: #c0caf5; }
        .light-theme { background: #fafafa; color: #1f2937; }
        .container { max-width: 760px; margin: 0 auto; padding: 2rem 1rem; }
        h1 { color: #a78bfa; margin-bottom: 0.25rem; }
        h2 { font-size: 1.1rem; text-transform: capitalize; }
        h2 time { font-size: 0.8rem; font-weight: normal; opacity: 0.6; margin-left: 0.5rem; }
        blockquote { border-left: 3px solid #22d3ee; margin: 0.5rem 0; padding-left: 0.75rem; }
        .generation { border-bottom: 1px solid rgba(128, 128, 128, 0.3); padding: 1rem 0; }
        .meta { font-size: 0.85rem; opacity: 0.7; }
        .explanation { font-style: italic; opacity: 0.8; margin: 0.25rem 0 0.5rem; }
    </style>
`
}
