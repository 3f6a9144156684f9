// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Provider names accepted by backend.provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderAuto   = "auto"
)

// Config is the main configuration structure for emojify.
type Config struct {
	Backend    BackendConfig    `toml:"backend" json:"backend"`
	Ollama     OllamaConfig     `toml:"ollama" json:"ollama"`
	Generation GenerationConfig `toml:"generation" json:"generation"`
	Limits     LimitsConfig     `toml:"limits" json:"limits"`
	Storage    StorageConfig    `toml:"storage" json:"storage"`
	Server     ServerConfig     `toml:"server" json:"server"`
}

// BackendConfig selects and tunes the completion backend.
type BackendConfig struct {
	// Provider is "openai", "ollama" or "auto" (cloud first, local fallback).
	Provider string `toml:"provider" json:"provider"`
	// Model is the cloud model name.
	Model string `toml:"model" json:"model"`
	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `toml:"base_url" json:"base_url"`
	// APIKey is the bearer token for BaseURL.
	APIKey string `toml:"api_key" json:"api_key"`
	// RequestTimeoutSecs bounds one generation call.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// ExplainTimeoutSecs bounds one explanation call.
	ExplainTimeoutSecs int `toml:"explain_timeout_secs" json:"explain_timeout_secs"`
	// MaxRetries is the retry budget for rate-limited or 5xx replies.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// OllamaConfig contains local Ollama configuration.
type OllamaConfig struct {
	URL   string `toml:"url" json:"url"`
	Model string `toml:"model" json:"model"`
}

// GenerationConfig holds the default density and tone.
type GenerationConfig struct {
	// Density is a name (few, less, default, more, absurd) or a slider step.
	Density string `toml:"density" json:"density"`
	// Tone is happy, sad, angry, default, or up to 20 characters of custom text.
	Tone string `toml:"tone" json:"tone"`
}

// LimitsConfig paces backend calls.
type LimitsConfig struct {
	RequestsPerSecond   float64 `toml:"requests_per_second" json:"requests_per_second"`
	Burst               int     `toml:"burst" json:"burst"`
	BreakerFailures     int     `toml:"breaker_failures" json:"breaker_failures"`
	BreakerCooldownSecs int     `toml:"breaker_cooldown_secs" json:"breaker_cooldown_secs"`
}

// StorageConfig controls the generation history database.
type StorageConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the sqlite file; empty means ~/.emojify/history.db.
	Path string `toml:"path" json:"path"`
	// MaxHistory caps stored generations; zero keeps everything.
	MaxHistory int `toml:"max_history" json:"max_history"`
}

// ServerConfig configures `emojify serve`.
type ServerConfig struct {
	Host string `toml:"host" json:"host"`
	Port int    `toml:"port" json:"port"`
	// BearerToken, when set, is required on every /v1 request.
	BearerToken        string `toml:"bearer_token" json:"bearer_token"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Provider:           ProviderAuto,
			Model:              model.DefaultModel,
			BaseURL:            "https://api.openai.com/v1",
			RequestTimeoutSecs: 60,
			ExplainTimeoutSecs: 30,
			MaxRetries:         3,
		},
		Ollama: OllamaConfig{
			URL:   "http://127.0.0.1:11434",
			Model: model.DefaultLocalModel,
		},
		Generation: GenerationConfig{
			Density: model.DensityDefault.String(),
			Tone:    model.DefaultTone.Label(),
		},
		Limits: LimitsConfig{
			RequestsPerSecond:   2,
			Burst:               4,
			BreakerFailures:     5,
			BreakerCooldownSecs: 30,
		},
		Storage: StorageConfig{
			Enabled:    true,
			MaxHistory: 500,
		},
		Server: ServerConfig{
			Host:               "127.0.0.1",
			Port:               8787,
			RateLimitPerMinute: 60,
		},
	}
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Backend.Provider == "" {
		c.Backend.Provider = d.Backend.Provider
	}
	if c.Backend.Model == "" {
		c.Backend.Model = d.Backend.Model
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	if c.Backend.RequestTimeoutSecs == 0 {
		c.Backend.RequestTimeoutSecs = d.Backend.RequestTimeoutSecs
	}
	if c.Backend.ExplainTimeoutSecs == 0 {
		c.Backend.ExplainTimeoutSecs = d.Backend.ExplainTimeoutSecs
	}
	if c.Ollama.URL == "" {
		c.Ollama.URL = d.Ollama.URL
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = d.Ollama.Model
	}
	if c.Generation.Density == "" {
		c.Generation.Density = d.Generation.Density
	}
	if c.Generation.Tone == "" {
		c.Generation.Tone = d.Generation.Tone
	}
	if c.Limits.RequestsPerSecond == 0 {
		c.Limits.RequestsPerSecond = d.Limits.RequestsPerSecond
	}
	if c.Limits.Burst == 0 {
		c.Limits.Burst = d.Limits.Burst
	}
	if c.Limits.BreakerFailures == 0 {
		c.Limits.BreakerFailures = d.Limits.BreakerFailures
	}
	if c.Limits.BreakerCooldownSecs == 0 {
		c.Limits.BreakerCooldownSecs = d.Limits.BreakerCooldownSecs
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.RateLimitPerMinute == 0 {
		c.Server.RateLimitPerMinute = d.Server.RateLimitPerMinute
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// GenerationDefaults parses the [generation] section into engine settings.
func (c *Config) GenerationDefaults() (model.Config, error) {
	density, err := model.ParseDensity(c.Generation.Density)
	if err != nil {
		return model.DefaultConfig(), err
	}
	cfg := model.Config{Density: density, Tone: model.ParseTone(c.Generation.Tone)}
	if err := cfg.Validate(); err != nil {
		return model.DefaultConfig(), err
	}
	return cfg, nil
}

// RequestTimeout returns backend.request_timeout_secs as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSecs) * time.Second
}

// ExplainTimeout returns backend.explain_timeout_secs as a duration.
func (c *Config) ExplainTimeout() time.Duration {
	return time.Duration(c.Backend.ExplainTimeoutSecs) * time.Second
}

// BreakerCooldown returns limits.breaker_cooldown_secs as a duration.
func (c *Config) BreakerCooldown() time.Duration {
	return time.Duration(c.Limits.BreakerCooldownSecs) * time.Second
}

// ServerAddr returns host:port for the HTTP server.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the emojify configuration directory (~/.emojify).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".emojify"), nil
}

// ConfigPath returns the path to config.toml.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions tightens a config file to 0600 since it may hold an API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0077 != 0 {
		return os.Chmod(path, 0600)
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.emojify/config.toml (if present), then .env and the
// environment. A missing file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, err
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from path, falling back to defaults when the
// file does not exist. Environment overrides are applied.
func LoadFrom(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	loadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ReadFile decodes path over Default() without environment overrides or
// validation.
func ReadFile(path string) (*Config, error) {
	cfg := Default()
	if _, statErr := os.Stat(path); statErr != nil {
		return cfg, nil
	}
	if err := ensureSecurePermissions(path); err != nil {
		log.Printf("CONFIG_PERMISSIONS | path=%s err=%v", path, err)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML file: %w", err)
	}
	for _, key := range md.Undecoded() {
		log.Printf("CONFIG_UNKNOWN_KEY | path=%s key=%s", path, key)
	}
	return cfg, nil
}

// loadDotEnv loads ./.env without overriding variables already set.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("CONFIG_DOTENV | err=%v", err)
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to ~/.emojify/config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration as TOML with 0600 permissions.
func SaveTo(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# emojify configuration file\n")
	buf.WriteString("# Generated by emojify - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch strings.ToLower(c.Backend.Provider) {
	case ProviderOpenAI, ProviderOllama, ProviderAuto:
	default:
		add("backend.provider", "invalid provider '%s', must be one of: openai, ollama, auto", c.Backend.Provider)
	}
	checkURL := func(field, raw string) {
		if raw == "" {
			return
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add(field, "invalid URL '%s'", raw)
		}
	}
	checkURL("backend.base_url", c.Backend.BaseURL)
	checkURL("ollama.url", c.Ollama.URL)

	if c.Backend.RequestTimeoutSecs < 0 || c.Backend.RequestTimeoutSecs > 600 {
		add("backend.request_timeout_secs", "must be between 0 and 600")
	}
	if c.Backend.ExplainTimeoutSecs < 0 || c.Backend.ExplainTimeoutSecs > 600 {
		add("backend.explain_timeout_secs", "must be between 0 and 600")
	}
	if c.Backend.MaxRetries < 0 || c.Backend.MaxRetries > 10 {
		add("backend.max_retries", "must be between 0 and 10")
	}

	if _, err := model.ParseDensity(c.Generation.Density); err != nil {
		add("generation.density", "%v", err)
	}
	if err := model.ParseTone(c.Generation.Tone).Validate(); err != nil {
		add("generation.tone", "%v", err)
	}

	if c.Limits.RequestsPerSecond < 0 {
		add("limits.requests_per_second", "cannot be negative")
	}
	if c.Limits.Burst < 0 {
		add("limits.burst", "cannot be negative")
	}
	if c.Limits.BreakerFailures < 0 {
		add("limits.breaker_failures", "cannot be negative")
	}
	if c.Limits.BreakerCooldownSecs < 0 {
		add("limits.breaker_cooldown_secs", "cannot be negative")
	}

	if c.Storage.MaxHistory < 0 {
		add("storage.max_history", "cannot be negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("server.port", "invalid port %d", c.Server.Port)
	}
	if c.Server.RateLimitPerMinute < 0 {
		add("server.rate_limit_per_minute", "cannot be negative")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - EMOJIFY_PROVIDER: overrides backend.provider
//   - EMOJIFY_MODEL: overrides backend.model
//   - EMOJIFY_BASE_URL: overrides backend.base_url
//   - EMOJIFY_API_KEY: overrides backend.api_key (OPENAI_API_KEY is the fallback)
//   - EMOJIFY_DENSITY: overrides generation.density
//   - EMOJIFY_TONE: overrides generation.tone
//   - EMOJIFY_OLLAMA_URL: overrides ollama.url
//   - EMOJIFY_DB: overrides storage.path
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("EMOJIFY_PROVIDER"); v != "" {
		c.Backend.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("EMOJIFY_MODEL"); v != "" {
		c.Backend.Model = v
	}
	if v := os.Getenv("EMOJIFY_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("EMOJIFY_API_KEY"); v != "" {
		c.Backend.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Backend.APIKey == "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("EMOJIFY_DENSITY"); v != "" {
		c.Generation.Density = v
	}
	if v := os.Getenv("EMOJIFY_TONE"); v != "" {
		c.Generation.Tone = v
	}
	if v := os.Getenv("EMOJIFY_OLLAMA_URL"); v != "" {
		c.Ollama.URL = v
	}
	if v := os.Getenv("EMOJIFY_DB"); v != "" {
		c.Storage.Path = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ollama.url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strings.TrimSpace(strVal), 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strings.TrimSpace(strVal))
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String && field.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := section.Tag.Get("toml")
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, prefix+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// IsSecret reports whether key holds a credential that should be masked.
func IsSecret(key string) bool {
	switch strings.ToLower(key) {
	case "backend.api_key", "server.bearer_token":
		return true
	}
	return false
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil || cfg == nil {
			log.Printf("CONFIG_LOAD_FAILED | err=%v (using defaults)", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
