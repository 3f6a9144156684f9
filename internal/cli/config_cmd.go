// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - The config command.

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/Elephant333/emojify/internal/config"
)

// HandleConfig handles config show|get|set|path|init. It works on the file
// directly and does not need a backend.
func HandleConfig(w io.Writer, args Args) error {
	p := NewArgParser(args.Raw, "force")
	path, err := config.ConfigPath()
	if err != nil {
		return WrapError(err, "failed to locate config")
	}

	switch p.Subcommand() {
	case "", "show":
		return configShow(w, args.JSON, path)
	case "get":
		return configGet(w, args.JSON, p.Positional(1))
	case "set":
		if p.PositionalCount() != 3 {
			return &UsageError{Command: "config", Usage: "set <key> <value>"}
		}
		return configSet(w, args.JSON, path, p.Positional(1), p.Positional(2))
	case "path":
		return OutputJSON(w, args.JSON, "config", func() (interface{}, error) {
			if !args.JSON {
				fmt.Fprintln(w, path)
			}
			return map[string]string{"config_path": path}, nil
		})
	case "init":
		return configInit(w, args.JSON, path, p.BoolFlag("force"))
	default:
		return &UsageError{
			Command: "config",
			Usage:   "[show|get KEY|set KEY VALUE|path|init]",
			Hint:    didYouMean(p.Subcommand(), configSubcommands),
		}
	}
}

// maskValue hides all but the last four characters of a secret.
func maskValue(v string) string {
	if v == "" {
		return "(not set)"
	}
	if len(v) <= 8 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

// displayValue renders a config value, masking secrets.
func displayValue(key string, v interface{}) string {
	s := fmt.Sprint(v)
	if config.IsSecret(key) {
		return maskValue(s)
	}
	return s
}

func configShow(w io.Writer, jsonMode bool, path string) error {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	return OutputJSON(w, jsonMode, "config", func() (interface{}, error) {
		data := ConfigData{Path: path, Settings: make(map[string]string)}
		if !jsonMode {
			fmt.Fprintln(w, TitleStyle.Render("Configuration"))
			fmt.Fprintln(w, DimStyle.Render(path))
		}
		for _, key := range config.GetAllKeys() {
			v, err := cfg.Get(key)
			if err != nil {
				return nil, err
			}
			shown := displayValue(key, v)
			data.Settings[key] = shown
			if !jsonMode {
				fmt.Fprintf(w, "%s %s\n", LabelStyle.Copy().Width(32).Render(key), shown)
			}
		}
		return data, nil
	})
}

func configGet(w io.Writer, jsonMode bool, key string) error {
	if key == "" {
		return &UsageError{Command: "config", Usage: "get <key>"}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	v, err := cfg.Get(key)
	if err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: "unknown setting", Example: "backend.model"}
	}
	return OutputJSON(w, jsonMode, "config", func() (interface{}, error) {
		shown := displayValue(key, v)
		if !jsonMode {
			fmt.Fprintln(w, shown)
		}
		return map[string]string{"key": key, "value": shown}, nil
	})
}

func configSet(w io.Writer, jsonMode bool, path, key, value string) error {
	cfg, err := config.ReadFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return &ValidationError{Field: key, Value: value, Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return &ValidationError{Field: key, Value: value, Reason: err.Error()}
	}
	if err := config.SaveTo(cfg, path); err != nil {
		return WrapError(err, "failed to save config")
	}
	return OutputJSON(w, jsonMode, "config", func() (interface{}, error) {
		shown := displayValue(key, value)
		if !jsonMode {
			fmt.Fprintf(w, "%s %s = %s\n", SuccessStyle.Render("Set"), key, shown)
		}
		return map[string]string{"key": key, "value": shown}, nil
	})
}

func configInit(w io.Writer, jsonMode bool, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return &ValidationError{Field: "config", Value: path, Reason: "file already exists", Example: "emojify config init --force"}
	}
	if err := config.SaveTo(config.Default(), path); err != nil {
		return WrapError(err, "failed to write config")
	}
	return OutputJSON(w, jsonMode, "config", func() (interface{}, error) {
		if !jsonMode {
			fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("Wrote"), path)
		}
		return map[string]string{"config_path": path}, nil
	})
}
