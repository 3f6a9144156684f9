// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/storage"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func testOptions(dir string) *Options {
	opts := DefaultOptions()
	opts.OutputDir = dir
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func sampleGenerations() []storage.Generation {
	return []storage.Generation{
		{
			ID:       "gen-1",
			Mode:     model.ModeEmojify,
			Source:   "good morning *everyone*",
			Config:   model.Config{Density: model.DensityMore, Tone: model.HappyTone},
			Model:    "gpt-3.5-turbo",
			Provider: "openai",
			Variants: []model.Variant{
				model.TextVariant("good morning ☀️"),
				model.TextVariant("morning 👋"),
				model.TextVariant("gm 🌅"),
			},
			CreatedAt:    fixedNow.Add(-time.Hour),
			Feedback:     map[int]storage.Rating{0: storage.RatingUp, 2: storage.RatingDown},
			Explanations: map[int]string{1: "A wave says hello."},
		},
		{
			ID:     "gen-2",
			Mode:   model.ModeSearch,
			Source: "<cat>",
			Config: model.DefaultConfig(),
			Model:  "llama3.2",
			Variants: []model.Variant{
				model.EmojiVariant("🐱", "cat face"),
				model.EmojiVariant("🐈", "cat"),
				model.EmojiVariant("😺", "grinning cat"),
			},
			CreatedAt: fixedNow.Add(-2 * time.Hour),
		},
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"", ".md"},
		{"markdown", ".md"},
		{"JSON", ".json"},
		{"html", ".html"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			e, err := ForFormat(tt.format, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.ext, e.FileExtension())
		})
	}

	_, err := ForFormat("pdf", nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions("")).Export(sampleGenerations())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: emojify history\n"))
	assert.Contains(t, md, "generations: 2")
	assert.Contains(t, md, `models: "gpt-3.5-turbo, llama3.2"`)
	assert.Contains(t, md, "> good morning \\*everyone\\*")
	assert.Contains(t, md, "1. good morning ☀️ 👍")
	assert.Contains(t, md, "   *A wave says hello.*")
	assert.Contains(t, md, "3. gm 🌅 👎")
	assert.Contains(t, md, "1. 🐱 cat face")
	assert.Contains(t, md, "**Density**: more, **Tone**: happy")
	assert.Contains(t, md, "gpt-3.5-turbo via openai")
}

func TestMarkdownWithoutMetadata(t *testing.T) {
	opts := testOptions("")
	opts.IncludeMetadata = false
	out, err := NewMarkdownExporter(opts).Export(sampleGenerations())
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(string(out), "---"))
	assert.NotContains(t, string(out), "**ID**")
}

func TestJSONExportRoundTrips(t *testing.T) {
	out, err := NewJSONExporter(testOptions("")).Export(sampleGenerations())
	require.NoError(t, err)

	var doc struct {
		ExportedAt  time.Time            `json:"exported_at"`
		Count       int                  `json:"count"`
		Generations []storage.Generation `json:"generations"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, 2, doc.Count)
	assert.True(t, doc.ExportedAt.Equal(fixedNow))
	require.Len(t, doc.Generations, 2)
	assert.Equal(t, model.ModeSearch, doc.Generations[1].Mode)
	assert.Equal(t, "cat face", doc.Generations[1].Variants[0].Name)
	assert.Equal(t, storage.RatingDown, doc.Generations[0].Feedback[2])
}

func TestHTMLExportEscapes(t *testing.T) {
	opts := testOptions("")
	opts.Theme = "neon"
	out, err := NewHTMLExporter(opts).Export(sampleGenerations())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, `<body class="dark-theme">`)
	assert.Contains(t, page, "&lt;cat&gt;")
	assert.NotContains(t, page, "<cat>")
	assert.Contains(t, page, `<p class="explanation">A wave says hello.</p>`)
	assert.Contains(t, page, "March 14, 2025")
}

func TestExportRejectsEmpty(t *testing.T) {
	for _, format := range Formats() {
		e, err := ForFormat(format, nil)
		require.NoError(t, err)
		_, err = e.Export(nil)
		assert.ErrorIs(t, err, ErrNothingToExport, format)
	}

	_, err := NewJSONExporter(nil).Export([]storage.Generation{{ID: "x"}})
	assert.Error(t, err)
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	opts := testOptions(dir)

	path, err := ExportToFile(sampleGenerations(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "emojify_history_20250314_092653.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# emojify history")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleGenerations(), NewJSONExporter(testOptions(""))))
	assert.Contains(t, buf.String(), `"count": 2`)

	assert.ErrorIs(t, Write(&buf, nil, NewJSONExporter(nil)), ErrNothingToExport)
}
