// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Doctor command implementation for emojify.
//
// Command: doctor
// Short:   Check configuration, backends and the history database
//
// Health Checks Performed:
//  1. Config Valid     - The config file parses and validates
//  2. Cloud Key        - An API key is set for the openai provider
//  3. Ollama Running   - The local server answers
//  4. Model Available  - The configured local model is pulled
//  5. Backend Routes   - At least one provider can serve requests
//  6. History Writable - The sqlite database opens and reads
//
// Exit Codes:
//
//	0   No check failed (warnings allowed)
//	1   One or more checks failed
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Elephant333/emojify/internal/cloud"
	"github.com/Elephant333/emojify/internal/config"
	"github.com/Elephant333/emojify/internal/ollama"
	"github.com/Elephant333/emojify/internal/router"
	"github.com/Elephant333/emojify/internal/storage"
)

// doctorProbeTimeout bounds each network check.
const doctorProbeTimeout = 3 * time.Second

// =============================================================================
// HEALTH CHECK TYPES
// =============================================================================

// CheckStatus represents the status of a health check.
type CheckStatus int

const (
	CheckPass CheckStatus = iota
	CheckWarn
	CheckFail
	CheckSkip
)

// String returns the JSON name of the status.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	case CheckFail:
		return "fail"
	default:
		return "skip"
	}
}

// Symbol returns the rendered marker for the status.
func (s CheckStatus) Symbol() string {
	switch s {
	case CheckPass:
		return SuccessStyle.Render("[OK]")
	case CheckWarn:
		return WarningStyle.Render("[!!]")
	case CheckFail:
		return ErrorStyle.Render("[FAIL]")
	default:
		return DimStyle.Render("[--]")
	}
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"-"`
	State   string      `json:"status"`
	Message string      `json:"message"`
	Fix     string      `json:"fix,omitempty"`
}

// Render returns a formatted string representation of the health check.
func (c *HealthCheck) Render() string {
	result := fmt.Sprintf("%s %s", c.Status.Symbol(), c.Message)
	if (c.Status == CheckWarn || c.Status == CheckFail) && c.Fix != "" {
		result += "\n" + DimStyle.Render("     -> "+c.Fix)
	}
	return result
}

// DoctorData represents the data returned by the doctor command.
type DoctorData struct {
	Checks  []*HealthCheck `json:"checks"`
	Passed  int            `json:"passed"`
	Warned  int            `json:"warned"`
	Failed  int            `json:"failed"`
	Healthy bool           `json:"healthy"`
}

// =============================================================================
// COMMAND
// =============================================================================

// HandleDoctor runs every check and prints the results.
func HandleDoctor(ctx context.Context, w io.Writer, jsonMode bool) error {
	cfg, loadErr := config.Load()
	checks := RunChecks(ctx, cfg, loadErr)

	data := DoctorData{Checks: checks}
	for _, c := range checks {
		c.State = c.Status.String()
		switch c.Status {
		case CheckPass:
			data.Passed++
		case CheckWarn:
			data.Warned++
		case CheckFail:
			data.Failed++
		}
	}
	data.Healthy = data.Failed == 0

	var err error
	if data.Failed > 0 {
		err = fmt.Errorf("%d health check(s) failed", data.Failed)
	}

	if jsonMode {
		resp := NewJSONResponse("doctor", data)
		if err != nil {
			msg := err.Error()
			resp.Success = false
			resp.Error = &msg
		}
		if perr := resp.Print(w); perr != nil {
			return perr
		}
		return err
	}

	fmt.Fprintln(w, TitleStyle.Render("emojify doctor"))
	fmt.Fprintln(w, RenderSeparator(41))
	for _, c := range checks {
		fmt.Fprintln(w, c.Render())
	}
	fmt.Fprintln(w, RenderSeparator(41))
	summary := []string{fmt.Sprintf("%d passed", data.Passed)}
	if data.Warned > 0 {
		summary = append(summary, WarningStyle.Render(fmt.Sprintf("%d warning", data.Warned)))
	}
	if data.Failed > 0 {
		summary = append(summary, ErrorStyle.Render(fmt.Sprintf("%d failed", data.Failed)))
	}
	fmt.Fprintln(w, strings.Join(summary, ", "))
	return err
}

// RunChecks runs every check against cfg. loadErr is the error, if any, from
// loading cfg; later checks are skipped when the config is unusable.
func RunChecks(ctx context.Context, cfg *config.Config, loadErr error) []*HealthCheck {
	checks := []*HealthCheck{checkConfig(loadErr)}
	if loadErr != nil || cfg == nil {
		return checks
	}

	checks = append(checks, checkCloudKey(cfg))
	ollamaCheck, local := checkOllamaRunning(ctx, cfg)
	checks = append(checks, ollamaCheck, checkLocalModel(ctx, cfg, local))
	checks = append(checks, checkRoutes(cfg), checkHistory(ctx, cfg))
	return checks
}

// =============================================================================
// HEALTH CHECK FUNCTIONS
// =============================================================================

func checkConfig(loadErr error) *HealthCheck {
	check := &HealthCheck{Name: "config"}
	if loadErr != nil {
		check.Status = CheckFail
		check.Message = "Config is invalid: " + loadErr.Error()
		check.Fix = "emojify config show, or emojify config init --force"
		return check
	}
	check.Status = CheckPass
	check.Message = "Config is valid"
	return check
}

func checkCloudKey(cfg *config.Config) *HealthCheck {
	check := &HealthCheck{Name: "cloud_key"}
	switch {
	case cfg.Backend.Provider == config.ProviderOllama:
		check.Status = CheckSkip
		check.Message = "Cloud backend not used (provider ollama)"
	case cfg.Backend.APIKey == "":
		check.Status = CheckWarn
		if cfg.Backend.Provider == config.ProviderOpenAI {
			check.Status = CheckFail
		}
		check.Message = "No API key configured"
		check.Fix = "emojify config set backend.api_key <key>, or export EMOJIFY_API_KEY"
	default:
		client := cloud.NewClient(cloud.Config{APIKey: cfg.Backend.APIKey, BaseURL: cfg.Backend.BaseURL})
		check.Status = CheckPass
		check.Message = fmt.Sprintf("API key set (fingerprint %s) for %s", client.KeyFingerprint(), client.BaseURL())
	}
	return check
}

// checkOllamaRunning returns the client when the server answered.
func checkOllamaRunning(ctx context.Context, cfg *config.Config) (*HealthCheck, *ollama.Client) {
	check := &HealthCheck{Name: "ollama"}
	if cfg.Backend.Provider == config.ProviderOpenAI {
		check.Status = CheckSkip
		check.Message = "Local backend not used (provider openai)"
		return check, nil
	}

	client := ollama.NewClient(ollama.Config{BaseURL: cfg.Ollama.URL, Timeout: doctorProbeTimeout})
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		check.Status = CheckWarn
		if cfg.Backend.Provider == config.ProviderOllama {
			check.Status = CheckFail
		}
		check.Message = fmt.Sprintf("Ollama is not responding at %s", client.BaseURL())
		check.Fix = "ollama serve"
		return check, nil
	}
	check.Status = CheckPass
	check.Message = fmt.Sprintf("Ollama is running at %s", client.BaseURL())
	return check, client
}

func checkLocalModel(ctx context.Context, cfg *config.Config, client *ollama.Client) *HealthCheck {
	check := &HealthCheck{Name: "local_model"}
	if client == nil {
		check.Status = CheckSkip
		check.Message = "Local model not checked"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	models, err := client.ListModels(ctx)
	if err != nil {
		check.Status = CheckWarn
		check.Message = "Could not list local models"
		return check
	}
	want := cfg.Ollama.Model
	for _, m := range models {
		if m.Name == want || strings.TrimSuffix(m.Name, ":latest") == want {
			check.Status = CheckPass
			check.Message = fmt.Sprintf("Model %s is available (%s)", m.Name, m.FormatSize())
			return check
		}
	}
	check.Status = CheckWarn
	if cfg.Backend.Provider == config.ProviderOllama {
		check.Status = CheckFail
	}
	check.Message = fmt.Sprintf("Model %s is not pulled", want)
	check.Fix = "ollama pull " + want
	return check
}

func checkRoutes(cfg *config.Config) *HealthCheck {
	check := &HealthCheck{Name: "routes"}
	var cloudClient, localClient router.Completer
	if cfg.Backend.Provider != config.ProviderOllama {
		cloudClient = cloud.NewClient(cloud.Config{APIKey: cfg.Backend.APIKey, BaseURL: cfg.Backend.BaseURL})
	}
	if cfg.Backend.Provider != config.ProviderOpenAI {
		localClient = ollama.NewClient(ollama.Config{BaseURL: cfg.Ollama.URL})
	}
	r, err := router.New(router.Options{Provider: cfg.Backend.Provider, LocalModel: cfg.Ollama.Model}, cloudClient, localClient)
	if err != nil {
		check.Status = CheckFail
		check.Message = "No usable backend: " + err.Error()
		check.Fix = "set backend.api_key, or emojify config set backend.provider ollama"
		return check
	}
	check.Status = CheckPass
	check.Message = fmt.Sprintf("Provider %s routes to %s", cfg.Backend.Provider, strings.Join(r.Providers(), " then "))
	return check
}

func checkHistory(ctx context.Context, cfg *config.Config) *HealthCheck {
	check := &HealthCheck{Name: "history"}
	if !cfg.Storage.Enabled {
		check.Status = CheckSkip
		check.Message = "History is disabled"
		return check
	}
	path := cfg.Storage.Path
	if path == "" {
		path = storage.DefaultPath()
	}
	store, err := storage.Open(storage.Config{Path: path})
	if err != nil {
		check.Status = CheckFail
		check.Message = "History database unavailable: " + err.Error()
		check.Fix = "check permissions on " + path
		return check
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		check.Status = CheckFail
		check.Message = "History database unreadable: " + err.Error()
		return check
	}
	check.Status = CheckPass
	check.Message = fmt.Sprintf("History at %s (%d generations)", path, stats.Total)
	return check
}
