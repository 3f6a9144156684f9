// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive emojify session.
//
// Each non-command line is sent through the current mode. Slash commands
// change the mode and settings or act on the last result:
//
//	/mode add|translate|search|analyze
//	/density NAME|STEP    /tone NAME|TEXT
//	/explain N  /copy N  /good N  /bad N
//	/history  /help  /quit

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"

	"github.com/Elephant333/emojify/internal/config"
	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeSlash)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history (0600) and restores the terminal.
func (c *ChatCLI) Close() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

var slashCommands = []string{
	"/mode ", "/density ", "/tone ", "/explain ", "/copy ",
	"/good ", "/bad ", "/history", "/help", "/quit",
}

func completeSlash(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, c := range slashCommands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// SESSION
// =============================================================================

// ChatSession is the state of one interactive session.
type ChatSession struct {
	app    *App
	out    io.Writer
	mode   model.Mode
	config model.Config

	// last result, for /explain, /copy, /good and /bad
	variants []model.Variant
	source   string
	recordID string

	count int

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewChatSession starts in mode with the configured density and tone.
func NewChatSession(app *App, mode model.Mode) *ChatSession {
	return &ChatSession{
		app:    app,
		out:    app.Out,
		mode:   mode,
		config: app.GenerationDefaults(),
	}
}

// Prompt returns the prompt for the current mode.
func (s *ChatSession) Prompt() string {
	return s.mode.String() + "> "
}

// HandleLine processes one line of input. It returns false when the session
// should end.
func (s *ChatSession) HandleLine(ctx context.Context, input string) (bool, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return true, nil
	}
	if strings.HasPrefix(input, "/") {
		return s.handleSlashCommand(ctx, input)
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return false, nil
	}
	return true, s.generate(ctx, input)
}

func (s *ChatSession) generate(ctx context.Context, input string) error {
	source := normalizeSource(input)
	if err := checkSource(source); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.setCancel(cancel)
	defer func() {
		s.setCancel(nil)
		cancel()
	}()

	data, err := s.app.Generate(ctx, GenerateOptions{Mode: s.mode, Source: source, Config: s.config})
	if err != nil {
		return err
	}
	s.variants = data.Variants
	s.source = source
	s.recordID = data.ID
	s.count++
	return nil
}

// Cancel stops the in-flight request, if any. It reports whether there was
// one.
func (s *ChatSession) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

func (s *ChatSession) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func (s *ChatSession) handleSlashCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	command := strings.ToLower(parts[0])
	arg := strings.TrimSpace(strings.TrimPrefix(cmd, parts[0]))

	switch command {
	case "/help", "/h", "/?", "/":
		s.printHelp()
	case "/quit", "/q", "/exit":
		return false, nil
	case "/mode", "/m":
		if arg == "" {
			fmt.Fprintf(s.out, "mode: %s\n", s.mode)
			return true, nil
		}
		mode, err := model.ParseMode(arg)
		if err != nil {
			return true, &ValidationError{Field: "mode", Value: arg, Reason: "unknown mode", Example: "/mode translate"}
		}
		s.mode = mode
	case "/density", "/d":
		if arg == "" {
			fmt.Fprintf(s.out, "density: %s\n", s.config.Density)
			return true, nil
		}
		density, err := model.ParseDensity(arg)
		if err != nil {
			return true, &ValidationError{Field: "density", Value: arg, Reason: "unknown density", Example: "/density more"}
		}
		s.config.Density = density
	case "/tone", "/t":
		if arg == "" {
			fmt.Fprintf(s.out, "tone: %s\n", s.config.Tone.Label())
			return true, nil
		}
		s.config.Tone = model.ParseTone(arg)
	case "/explain", "/e":
		n, err := s.lastVariant(arg)
		if err != nil {
			return true, err
		}
		_, err = s.app.explainCurrent(ctx, s.variants, n, s.source)
		return true, err
	case "/copy", "/c":
		n, err := s.lastVariant(arg)
		if err != nil {
			return true, err
		}
		return true, s.app.copyVariant(s.variants, n)
	case "/good", "/bad":
		n, err := s.lastVariant(arg)
		if err != nil {
			return true, err
		}
		rating := storage.RatingUp
		if command == "/bad" {
			rating = storage.RatingDown
		}
		return true, s.rate(ctx, n, rating)
	case "/history":
		return true, s.printHistory(ctx)
	default:
		if hint := didYouMean(command, chatCommands); hint != "" {
			return true, fmt.Errorf("unknown command: %s%s", command, hint)
		}
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return true, nil
}

// lastVariant parses a 1-based variant number against the last result.
func (s *ChatSession) lastVariant(arg string) (int, error) {
	if len(s.variants) == 0 {
		return 0, errors.New("nothing to act on yet; send a message first")
	}
	if arg == "" {
		arg = "1"
	}
	index, err := ParseVariantNumber(arg)
	if err != nil {
		return 0, err
	}
	if index >= len(s.variants) {
		return 0, &ValidationError{Field: "variant", Value: arg, Reason: fmt.Sprintf("pick 1-%d", len(s.variants))}
	}
	return index + 1, nil
}

func (s *ChatSession) rate(ctx context.Context, n int, rating storage.Rating) error {
	store, err := s.app.requireStore()
	if err != nil {
		return err
	}
	if s.recordID == "" {
		return errors.New("the last result was not saved to history")
	}
	if err := store.SetFeedback(ctx, s.recordID, n-1, rating); err != nil {
		return mapStoreError(err, s.recordID)
	}
	fmt.Fprintf(s.out, "#%d %s\n", n, RenderRating(rating))
	return nil
}

func (s *ChatSession) printHistory(ctx context.Context) error {
	store, err := s.app.requireStore()
	if err != nil {
		return err
	}
	gens, err := store.List(ctx, storage.ListOptions{Limit: 10})
	if err != nil {
		return err
	}
	writeHistoryTable(s.app, gens)
	return nil
}

func (s *ChatSession) printHelp() {
	fmt.Fprintln(s.out, TitleStyle.Render("Commands"))
	help := [][2]string{
		{"/mode M", "add, translate, search or analyze"},
		{"/density D", "few, less, default, more, absurd or 0-40"},
		{"/tone T", "happy, sad, angry, default or any text"},
		{"/explain N", "explain variant N of the last result"},
		{"/copy N", "copy variant N to the clipboard"},
		{"/good N, /bad N", "rate variant N"},
		{"/history", "recent generations"},
		{"/quit", "leave"},
	}
	for _, h := range help {
		fmt.Fprintf(s.out, "  %s %s\n", RenderLabel(h[0]), DimStyle.Render(h[1]))
	}
}

func (s *ChatSession) printWelcome() {
	fmt.Fprintf(s.out, "%s %s\n", TitleStyle.Render("emojify chat"),
		DimStyle.Render(fmt.Sprintf("model %s, density %s, tone %s. /help for commands.",
			s.app.Engine.Model(), s.config.Density, s.config.Tone.Label())))
}

// =============================================================================
// REPL
// =============================================================================

// HandleChat runs the interactive session until /quit, Ctrl+C at the prompt
// or EOF.
func HandleChat(ctx context.Context, app *App, args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}
	p := NewArgParser(args.Raw)
	mode := model.ModeEmojify
	if raw := p.Flag("mode"); raw != "" {
		m, err := model.ParseMode(raw)
		if err != nil {
			return &ValidationError{Field: "mode", Value: raw, Reason: "unknown mode", Example: "--mode translate"}
		}
		mode = m
	}

	session := NewChatSession(app, mode)
	input := NewChatCLI()
	defer input.Close()

	// Ctrl+C during a request cancels the request, not the session.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if session.Cancel() {
				fmt.Fprintln(app.Err, WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	session.printWelcome()
	for {
		line, err := input.ReadInput(session.Prompt())
		if err != nil {
			fmt.Fprintln(app.Out)
			return nil
		}
		keepGoing, err := session.HandleLine(ctx, line)
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(app.Err, "%s %s\n", ErrorStyle.Render("[Error]"), Message(err))
		}
		if !keepGoing {
			return nil
		}
	}
}

// RequiresTTY returns an error if stdin is not a terminal.
func RequiresTTY(operation string) error {
	if !IsTTY() {
		return fmt.Errorf("stdin is not a terminal; cannot %s interactively", operation)
	}
	return nil
}
