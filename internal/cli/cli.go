// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing, usage text and version output for emojify.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/Elephant333/emojify/internal/model"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdGenerate
	CmdExplain
	CmdChat
	CmdHistory
	CmdFeedback
	CmdConfig
	CmdServe
	CmdDoctor
	CmdVersion
	CmdHelp
)

// String returns the command name used in JSON envelopes.
func (c Command) String() string {
	switch c {
	case CmdGenerate:
		return "generate"
	case CmdExplain:
		return "explain"
	case CmdChat:
		return "chat"
	case CmdHistory:
		return "history"
	case CmdFeedback:
		return "feedback"
	case CmdConfig:
		return "config"
	case CmdServe:
		return "serve"
	case CmdDoctor:
		return "doctor"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "tui"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Verbose   bool
	JSON      bool
	Model     string
	NoHistory bool
	Trace     bool
	Offline   bool

	// Mode is set for generation commands and by "chat --mode".
	Mode model.Mode

	// Raw args (remaining after the command name and global flags)
	Raw []string
}

const usageText = `emojify - add, translate, search and analyze emoji from the terminal

Usage:
  emojify                          Start the TUI (default)
  emojify add <text>               Add emoji throughout the text
  emojify translate <text>         Rewrite the text as emoji only
  emojify search <description>     Find emoji matching a description
  emojify analyze <text>           Explain the tone of text containing emoji
  emojify explain <id> <n>         Explain variant n of a stored generation
  emojify chat [--mode M]          Interactive session
  emojify history [subcommand]     Browse stored generations
  emojify feedback <id> <n> <r>    Rate variant n: up, down or none
  emojify config [subcommand]      Show or edit configuration
  emojify serve [--port N]         Start the HTTP API
  emojify doctor                   Check config, backends and history
  emojify tui [mode]               Start the TUI
  emojify version                  Show version information
  emojify help                     Show this help

Text is read from stdin when none is given and stdin is not a terminal.

Generation flags:
  --density NAME|STEP   few, less, default, more, absurd or 0/10/20/30/40
  --tone NAME|TEXT      happy, sad, angry or any custom tone
  --explain N           Explain variant N after generating
  --copy N              Copy variant N to the clipboard
  --raw                 Print the backend reply, highlighted

Global flags:
  --json                Output a JSON envelope
  --model NAME          Override the configured model
  --no-history          Do not read or write the history database
  --trace               Print OpenTelemetry spans to stderr
  --offline             Use only a local ollama backend on localhost
  -v, --verbose         Show log output

History:
  emojify history                  List recent generations
  emojify history list [--mode M] [--limit N]
  emojify history show <id>
  emojify history delete <id>
  emojify history clear --confirm
  emojify history stats
  emojify history export [--format md|json|html] [--out DIR|-] [--mode M]

Config:
  emojify config show              Show all settings (secrets masked)
  emojify config get <key>         e.g. backend.model
  emojify config set <key> <val>   e.g. generation.density more
  emojify config path              Print the config file location
  emojify config init              Write a default config file

Examples:
  emojify add "good morning team"
  emojify translate --tone happy "I passed my exam"
  echo "pizza party" | emojify add --density absurd --copy 1
  emojify search "tired but happy"
  emojify analyze "sure 🙃"

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "emojify version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

// VersionInfo returns the version data for --json output.
func VersionInfo() VersionData {
	return VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	parsedArgs.Raw = remaining[1:]

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "add", "emojify", "translate", "search", "analyze":
		mode, _ := model.ParseMode(cmd)
		parsedArgs.Mode = mode
		return CmdGenerate, parsedArgs

	case "explain":
		return CmdExplain, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "history", "h":
		return CmdHistory, parsedArgs

	case "feedback", "rate":
		return CmdFeedback, parsedArgs

	case "config":
		return CmdConfig, parsedArgs

	case "serve", "server":
		return CmdServe, parsedArgs

	case "doctor", "diag":
		return CmdDoctor, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Bare text is treated as "add".
		parsedArgs.Mode = model.ModeEmojify
		parsedArgs.Raw = remaining
		return CmdGenerate, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--no-history":
			parsedArgs.NoHistory = true
		case "--trace":
			parsedArgs.Trace = true
		case "--offline":
			parsedArgs.Offline = true
		case "--model":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--model=") {
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}
