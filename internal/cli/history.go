// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - The history, feedback and explain commands.

package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Elephant333/emojify/internal/export"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/storage"
	"github.com/Elephant333/emojify/internal/util"
)

// errHistoryDisabled is returned by history commands when no store is open.
var errHistoryDisabled = errors.New("history is disabled (storage.enabled = false or --no-history)")

func (a *App) requireStore() (*storage.Store, error) {
	if a.Store == nil {
		return nil, errHistoryDisabled
	}
	return a.Store, nil
}

// =============================================================================
// HISTORY
// =============================================================================

// HandleHistory dispatches the history subcommands.
func HandleHistory(ctx context.Context, app *App, args Args) error {
	store, err := app.requireStore()
	if err != nil {
		return err
	}
	p := NewArgParser(args.Raw, "confirm")

	switch p.Subcommand() {
	case "", "list", "ls":
		return historyList(ctx, app, store, p)
	case "show", "get":
		return historyShow(ctx, app, store, p.Positional(1))
	case "delete", "rm":
		return historyDelete(ctx, app, store, p.Positional(1))
	case "clear":
		return historyClear(ctx, app, store, p.BoolFlag("confirm"))
	case "stats":
		return historyStats(ctx, app, store)
	case "export":
		return historyExport(ctx, app, store, p)
	default:
		return &UsageError{
			Command: "history",
			Usage:   "[list|show ID|delete ID|clear --confirm|stats|export]",
			Hint:    didYouMean(p.Subcommand(), historySubcommands),
		}
	}
}

// listOptions reads --mode and --limit.
func listOptions(p *ArgParser) (storage.ListOptions, error) {
	opts := storage.ListOptions{Limit: p.FlagIntOrDefault("limit", 0)}
	if raw := p.Flag("mode"); raw != "" {
		mode, err := model.ParseMode(raw)
		if err != nil {
			return opts, &ValidationError{Field: "mode", Value: raw, Reason: "unknown mode", Example: "add, translate, search or analyze"}
		}
		opts.Mode = &mode
	}
	return opts, nil
}

func historyList(ctx context.Context, app *App, store *storage.Store, p *ArgParser) error {
	opts, err := listOptions(p)
	if err != nil {
		return err
	}

	return OutputJSON(app.Out, app.JSON, "history", func() (interface{}, error) {
		gens, err := store.List(ctx, opts)
		if err != nil {
			return nil, err
		}
		if gens == nil {
			gens = []storage.Generation{}
		}
		if !app.JSON {
			writeHistoryTable(app, gens)
		}
		return HistoryListData{Generations: gens}, nil
	})
}

// writeHistoryTable prints one line per generation: id, date, mode,
// source and the first variant.
func writeHistoryTable(app *App, gens []storage.Generation) {
	if len(gens) == 0 {
		fmt.Fprintln(app.Out, DimStyle.Render("No history yet."))
		return
	}
	for _, g := range gens {
		first := ""
		if len(g.Variants) > 0 {
			first = g.Variants[0].String()
		}
		line := fmt.Sprintf("%s  %s  %s  %s",
			g.ID,
			util.PadRight(g.CreatedAt.Local().Format("Jan 02 15:04"), 12),
			util.PadRight(g.Mode.String(), 9),
			util.TruncateWidth(g.Source, 30),
		)
		if first != "" {
			line += DimStyle.Render("  → " + first)
		}
		fmt.Fprintln(app.Out, line)
	}
}

func historyShow(ctx context.Context, app *App, store *storage.Store, id string) error {
	if id == "" {
		return &UsageError{Command: "history", Usage: "show <id>"}
	}
	return OutputJSON(app.Out, app.JSON, "history", func() (interface{}, error) {
		gen, err := store.Get(ctx, id)
		if err != nil {
			return nil, mapStoreError(err, id)
		}
		if !app.JSON {
			writeGeneration(app, gen)
		}
		return gen, nil
	})
}

func writeGeneration(app *App, g *storage.Generation) {
	fmt.Fprintln(app.Out, TitleStyle.Render(g.Mode.String()+" "+g.ID))
	fmt.Fprintf(app.Out, "%s%s\n", RenderLabel("Source"), g.Source)
	fmt.Fprintf(app.Out, "%s%s / %s\n", RenderLabel("Density / tone"), g.Config.Density, g.Config.Tone.Label())
	served := g.Model
	if g.Provider != "" {
		served += " via " + g.Provider
	}
	fmt.Fprintf(app.Out, "%s%s\n", RenderLabel("Model"), served)
	fmt.Fprintf(app.Out, "%s%s\n", RenderLabel("Created"), g.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(app.Out, RenderSeparator())

	for i, v := range g.Variants {
		line := fmt.Sprintf("  %s %s", NumberStyle.Render(fmt.Sprintf("%d.", i+1)), v.String())
		if r := RenderRating(g.Feedback[i]); r != "" {
			line += " " + r
		}
		fmt.Fprintln(app.Out, line)
		if text, ok := g.Explanations[i]; ok {
			fmt.Fprintln(app.Out, DimStyle.Render(util.Indent(WrapText(text, GetTerminalWidth()-6), "     ")))
		}
	}
}

func historyDelete(ctx context.Context, app *App, store *storage.Store, id string) error {
	if id == "" {
		return &UsageError{Command: "history", Usage: "delete <id>"}
	}
	return OutputJSON(app.Out, app.JSON, "history", func() (interface{}, error) {
		if err := store.Delete(ctx, id); err != nil {
			return nil, mapStoreError(err, id)
		}
		if !app.JSON {
			fmt.Fprintln(app.Out, SuccessStyle.Render("Deleted "+id))
		}
		return map[string]string{"deleted": id}, nil
	})
}

func historyClear(ctx context.Context, app *App, store *storage.Store, confirmed bool) error {
	ok, err := RequireConfirmation(app.In, app.Out, "history", "clear --confirm", "Delete all saved generations", ConfirmationOptions{
		ConfirmFlag: confirmed,
		JSONMode:    app.JSON,
		Interactive: isTerminal(app.In),
	})
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(app.Out, DimStyle.Render("Cancelled"))
		return nil
	}
	return OutputJSON(app.Out, app.JSON, "history", func() (interface{}, error) {
		n, err := store.Clear(ctx)
		if err != nil {
			return nil, err
		}
		if !app.JSON {
			fmt.Fprintln(app.Out, SuccessStyle.Render(fmt.Sprintf("Cleared %d generations", n)))
		}
		return map[string]int{"cleared": n}, nil
	})
}

func historyStats(ctx context.Context, app *App, store *storage.Store) error {
	return OutputJSON(app.Out, app.JSON, "history", func() (interface{}, error) {
		stats, err := store.Stats(ctx)
		if err != nil {
			return nil, err
		}
		if !app.JSON {
			fmt.Fprintln(app.Out, TitleStyle.Render("History"))
			fmt.Fprintf(app.Out, "%s%d\n", RenderLabel("Generations"), stats.Total)
			modes := make([]string, 0, len(stats.ByMode))
			for m := range stats.ByMode {
				modes = append(modes, m)
			}
			sort.Strings(modes)
			for _, m := range modes {
				fmt.Fprintf(app.Out, "%s%d\n", RenderLabel("  "+m), stats.ByMode[m])
			}
			fmt.Fprintf(app.Out, "%s%d 👍  %d 👎\n", RenderLabel("Feedback"), stats.ThumbsUp, stats.ThumbsDown)
			fmt.Fprintf(app.Out, "%s%d\n", RenderLabel("Explanations"), stats.Explanations)
		}
		return stats, nil
	})
}

// =============================================================================
// FEEDBACK
// =============================================================================

// HandleFeedback records a thumbs rating: feedback <id> <n> up|down|none.
func HandleFeedback(ctx context.Context, app *App, args Args) error {
	store, err := app.requireStore()
	if err != nil {
		return err
	}
	p := NewArgParser(args.Raw)
	if p.PositionalCount() != 3 {
		return &UsageError{Command: "feedback", Usage: "<id> <variant> up|down|none"}
	}
	id := p.Positional(0)
	index, err := ParseVariantNumber(p.Positional(1))
	if err != nil {
		return err
	}
	rating, err := storage.ParseRating(p.Positional(2))
	if err != nil {
		return &ValidationError{Field: "rating", Value: p.Positional(2), Reason: "unknown rating", Example: "up, down or none"}
	}

	return OutputJSON(app.Out, app.JSON, "feedback", func() (interface{}, error) {
		if err := store.SetFeedback(ctx, id, index, rating); err != nil {
			return nil, mapStoreError(err, id)
		}
		if !app.JSON {
			mark := RenderRating(rating)
			if mark == "" {
				mark = "cleared"
			}
			fmt.Fprintf(app.Out, "#%d %s\n", index+1, mark)
		}
		return FeedbackData{ID: id, Variant: index + 1, Rating: rating}, nil
	})
}

// =============================================================================
// EXPLAIN
// =============================================================================

// HandleExplain explains a variant of a stored generation: explain <id> <n>.
// The explanation is saved with the generation.
func HandleExplain(ctx context.Context, app *App, args Args) error {
	store, err := app.requireStore()
	if err != nil {
		return err
	}
	p := NewArgParser(args.Raw)
	if p.PositionalCount() != 2 {
		return &UsageError{Command: "explain", Usage: "<id> <variant>"}
	}
	id := p.Positional(0)
	index, err := ParseVariantNumber(p.Positional(1))
	if err != nil {
		return err
	}

	return OutputJSON(app.Out, app.JSON, "explain", func() (interface{}, error) {
		gen, err := store.Get(ctx, id)
		if err != nil {
			return nil, mapStoreError(err, id)
		}
		if index >= len(gen.Variants) {
			return nil, mapStoreError(storage.ErrBadIndex, id)
		}
		text := gen.Variants[index].String()
		explanation, err := app.Engine.ExplainMode(ctx, gen.Mode, index, text, gen.Source)
		if err != nil {
			return nil, err
		}
		if err := store.SaveExplanation(ctx, id, index, explanation); err != nil {
			return nil, err
		}
		if !app.JSON {
			fmt.Fprintf(app.Out, "%s %s\n%s\n", NumberStyle.Render(fmt.Sprintf("%d.", index+1)), text, RenderMarkdown(explanation))
		}
		return ExplainData{ID: id, Variant: index + 1, Text: text, Explanation: explanation}, nil
	})
}

// historyExport writes the listed generations, with their feedback and
// explanations, to a file in --out (default ".") or to stdout with --out -.
func historyExport(ctx context.Context, app *App, store *storage.Store, p *ArgParser) error {
	opts, err := listOptions(p)
	if err != nil {
		return err
	}
	format := p.FlagOrDefault("format", "md")
	exportOpts := export.DefaultOptions()
	exportOpts.OutputDir = p.FlagOrDefault("out", ".")
	exportOpts.Theme = p.FlagOrDefault("theme", "dark")

	exporter, err := export.ForFormat(format, exportOpts)
	if err != nil {
		return &ValidationError{Field: "format", Value: format, Reason: "unknown format", Example: strings.Join(export.Formats(), ", ")}
	}

	listed, err := store.List(ctx, opts)
	if err != nil {
		return err
	}
	gens := make([]storage.Generation, 0, len(listed))
	for _, g := range listed {
		full, err := store.Get(ctx, g.ID)
		if err != nil {
			return mapStoreError(err, g.ID)
		}
		gens = append(gens, *full)
	}
	if len(gens) == 0 {
		return export.ErrNothingToExport
	}

	if exportOpts.OutputDir == "-" {
		return export.Write(app.Out, gens, exporter)
	}

	return OutputJSON(app.Out, app.JSON, "history", func() (interface{}, error) {
		path, err := export.ExportToFile(gens, exporter, exportOpts)
		if err != nil {
			return nil, err
		}
		if !app.JSON {
			fmt.Fprintln(app.Out, SuccessStyle.Render(fmt.Sprintf("Exported %d generations to %s", len(gens), path)))
		}
		return ExportData{Path: path, Format: strings.TrimPrefix(exporter.FileExtension(), "."), Count: len(gens)}, nil
	})
}
