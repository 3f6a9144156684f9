// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// generate.go - The add, translate, search and analyze commands.

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/text/unicode/norm"

	"github.com/Elephant333/emojify/internal/engine"
	"github.com/Elephant333/emojify/internal/grapheme"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/prompt"
)

// generateBoolFlags never take a value.
var generateBoolFlags = []string{"raw"}

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

// =============================================================================
// OPTIONS
// =============================================================================

// GenerateOptions are the per-command settings of a generation.
type GenerateOptions struct {
	Mode    model.Mode
	Source  string
	Config  model.Config
	Explain int // 1-based; zero skips
	Copy    int // 1-based; zero skips
	Raw     bool
}

// ParseGenerateOptions reads flags and source text. The source comes from
// the positional arguments, or from piped stdin when there are none.
func (a *App) ParseGenerateOptions(args Args) (GenerateOptions, error) {
	p := NewArgParser(args.Raw, generateBoolFlags...)
	opts := GenerateOptions{
		Mode:   args.Mode,
		Config: a.GenerationDefaults(),
		Raw:    p.BoolFlag("raw"),
	}

	if raw := p.Flag("density"); raw != "" {
		density, err := model.ParseDensity(raw)
		if err != nil {
			return opts, &ValidationError{Field: "density", Value: raw, Reason: "unknown density", Example: "few, less, default, more, absurd or 0-40 in steps of 10"}
		}
		opts.Config.Density = density
	}
	if raw := p.Flag("tone"); raw != "" {
		opts.Config.Tone = model.ParseTone(raw)
	}
	opts.Config = prompt.ScopeConfig(opts.Mode, opts.Config)

	for flag, dst := range map[string]*int{"explain": &opts.Explain, "copy": &opts.Copy} {
		raw := p.Flag(flag)
		if raw == "" {
			continue
		}
		index, err := ParseVariantNumber(raw)
		if err != nil {
			return opts, &ValidationError{Field: flag, Value: raw, Reason: "must be a variant number", Example: "--" + flag + " 1"}
		}
		*dst = index + 1
	}

	source := strings.Join(p.PositionalFrom(0), " ")
	if source == "" {
		piped, err := readPiped(a.In)
		if err != nil {
			return opts, WrapError(err, "failed to read stdin")
		}
		source = piped
	}
	opts.Source = normalizeSource(source)
	return opts, checkSource(opts.Source)
}

// normalizeSource trims s and composes it to NFC.
func normalizeSource(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// checkSource rejects empty and over-long text before the engine is called.
func checkSource(source string) error {
	if source == "" {
		return &engine.ValidationError{Reason: engine.ErrEmptyInput}
	}
	if n := grapheme.SourceLen(source); n > model.MaxSourceUnits {
		return &engine.ValidationError{
			Reason:  engine.ErrSourceTooLong,
			Message: fmt.Sprintf("%d characters (max %d)", n, model.MaxSourceUnits),
		}
	}
	return nil
}

// =============================================================================
// COMMAND
// =============================================================================

// HandleGenerate runs one generation and prints it.
func HandleGenerate(ctx context.Context, app *App, args Args) error {
	opts, err := app.ParseGenerateOptions(args)
	if err != nil {
		return err
	}
	return OutputJSON(app.Out, app.JSON, "generate", func() (interface{}, error) {
		return app.Generate(ctx, opts)
	})
}

// Generate runs opts through the engine and prints the result unless the app
// is in JSON mode. The returned data is the JSON payload.
func (a *App) Generate(ctx context.Context, opts GenerateOptions) (*GenerateData, error) {
	start := time.Now()
	cfg := prompt.ScopeConfig(opts.Mode, opts.Config)
	res, err := a.Engine.GenerateResult(ctx, model.Request{
		Source: opts.Source,
		Mode:   opts.Mode,
		Config: cfg,
	})
	if err != nil {
		return nil, err
	}
	variants := res.Variants

	data := &GenerateData{
		ID:         res.RecordID,
		Mode:       opts.Mode,
		Source:     opts.Source,
		Config:     cfg,
		Model:      a.Engine.Model(),
		Provider:   a.provider(),
		Variants:   variants,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if opts.Raw {
		data.Raw = a.LastReply()
	}

	if !a.JSON {
		if opts.Raw {
			fmt.Fprintln(a.Out, HighlightJSON(data.Raw))
			fmt.Fprintln(a.Out, RenderSeparator())
		}
		WriteVariants(a.Out, opts.Mode, variants)
		if data.ID != "" {
			fmt.Fprintln(a.Out, DimStyle.Render("id "+data.ID))
		}
	}

	if opts.Copy > 0 {
		if err := a.copyVariant(variants, opts.Copy); err != nil {
			return nil, err
		}
		n := opts.Copy
		data.Copied = &n
	}

	if opts.Explain > 0 {
		explained, err := a.explainCurrent(ctx, variants, opts.Explain, opts.Source)
		if err != nil {
			return nil, err
		}
		explained.ID = data.ID
		data.Explanation = explained
	}
	return data, nil
}

// explainCurrent explains 1-based variant n of the current generation.
func (a *App) explainCurrent(ctx context.Context, variants []model.Variant, n int, source string) (*ExplainData, error) {
	if n < 1 || n > len(variants) {
		return nil, &engine.ValidationError{Reason: engine.ErrBadIndex}
	}
	text := variants[n-1].String()
	explanation, err := a.Engine.Explain(ctx, n-1, text, source)
	if err != nil {
		return nil, err
	}
	if !a.JSON {
		fmt.Fprintf(a.Out, "\n%s\n%s\n", TitleStyle.Render(fmt.Sprintf("Why #%d", n)), RenderMarkdown(explanation))
	}
	return &ExplainData{Variant: n, Text: text, Explanation: explanation}, nil
}

// copyVariant puts 1-based variant n on the clipboard.
func (a *App) copyVariant(variants []model.Variant, n int) error {
	if n < 1 || n > len(variants) {
		return &engine.ValidationError{Reason: engine.ErrBadIndex}
	}
	if err := copyToClipboard(variants[n-1].Copyable()); err != nil {
		return WrapError(err, "failed to copy to clipboard")
	}
	if !a.JSON {
		fmt.Fprintln(a.Out, SuccessStyle.Render(fmt.Sprintf("Copied #%d", n)))
	}
	return nil
}
