// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elephant333/emojify/internal/model"
)

// isolateEnv points HOME at a temp dir and clears every override variable.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, name := range []string{
		"EMOJIFY_PROVIDER", "EMOJIFY_MODEL", "EMOJIFY_BASE_URL", "EMOJIFY_API_KEY",
		"OPENAI_API_KEY", "EMOJIFY_DENSITY", "EMOJIFY_TONE", "EMOJIFY_OLLAMA_URL", "EMOJIFY_DB",
	} {
		t.Setenv(name, "")
	}
	return home
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
}

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderAuto, cfg.Backend.Provider)
	assert.Equal(t, model.DefaultModel, cfg.Backend.Model)
	assert.Equal(t, model.DefaultLocalModel, cfg.Ollama.Model)

	gen, err := cfg.GenerationDefaults()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), gen)
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	isolateEnv(t)
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFrom_PartialFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `
[backend]
provider = "ollama"

[generation]
density = "absurd"
tone = "pirate"

[ollama]
model = "qwen2.5"
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Backend.Provider)
	assert.Equal(t, "qwen2.5", cfg.Ollama.Model)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Ollama.URL, "unset keys keep defaults")
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout())

	gen, err := cfg.GenerationDefaults()
	require.NoError(t, err)
	assert.Equal(t, model.DensityAbsurd, gen.Density)
	assert.Equal(t, model.CustomTone("pirate"), gen.Tone)
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `
[backend]
provider = "carrier-pigeon"

[generation]
tone = "a tone that is far too long to send"

[server]
port = 70000
`)

	_, err := LoadFrom(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"backend.provider", "generation.tone", "server.port"}, fields)
}

func TestLoadFrom_MalformedTOML(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "[backend\nprovider = ")

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode TOML file")
}

func TestLoadFrom_TightensPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[backend]\n"), 0644))

	_, err := LoadFrom(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoad_ReadsHomeConfig(t *testing.T) {
	home := isolateEnv(t)
	writeConfig(t, filepath.Join(home, ".emojify", "config.toml"), "[generation]\ndensity = \"few\"\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "few", cfg.Generation.Density)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("EMOJIFY_PROVIDER", "OpenAI")
	t.Setenv("EMOJIFY_MODEL", "gpt-4o")
	t.Setenv("EMOJIFY_DENSITY", "30")
	t.Setenv("EMOJIFY_TONE", "sad")
	t.Setenv("EMOJIFY_OLLAMA_URL", "http://gpu-box:11434")
	t.Setenv("EMOJIFY_DB", "/tmp/emojify.db")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, ProviderOpenAI, cfg.Backend.Provider)
	assert.Equal(t, "gpt-4o", cfg.Backend.Model)
	assert.Equal(t, "sk-fallback", cfg.Backend.APIKey)
	assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.URL)
	assert.Equal(t, "/tmp/emojify.db", cfg.Storage.Path)

	gen, err := cfg.GenerationDefaults()
	require.NoError(t, err)
	assert.Equal(t, model.DensityMore, gen.Density)
	assert.Equal(t, model.ToneSad, gen.Tone.Kind)
}

func TestApplyEnvOverrides_APIKeyPrecedence(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg := Default()
	cfg.Backend.APIKey = "sk-from-file"
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "sk-from-file", cfg.Backend.APIKey, "fallback never replaces a configured key")

	t.Setenv("EMOJIFY_API_KEY", "sk-explicit")
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "sk-explicit", cfg.Backend.APIKey)
}

func TestReadFile_IgnoresEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("EMOJIFY_API_KEY", "sk-env")
	t.Setenv("EMOJIFY_MODEL", "gpt-4o")

	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "[backend]\nmodel = \"gpt-4o-mini\"\n")

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Backend.Model)
	assert.Empty(t, cfg.Backend.APIKey)

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", loaded.Backend.Model)
	assert.Equal(t, "sk-env", loaded.Backend.APIKey)
}

// =============================================================================
// GET / SET
// =============================================================================

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("generation.density", "more"))
	require.NoError(t, cfg.Set("server.port", "9000"))
	require.NoError(t, cfg.Set("storage.enabled", "false"))
	require.NoError(t, cfg.Set("limits.requests_per_second", "0.5"))
	require.NoError(t, cfg.Set("backend.base_url", "http://localhost:8080/v1"))
	require.NoError(t, cfg.Set("limits.burst", 7))

	v, err := cfg.Get("server.port")
	require.NoError(t, err)
	assert.Equal(t, 9000, v)

	v, err = cfg.Get("backend.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1", v)

	assert.Equal(t, "more", cfg.Generation.Density)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, 0.5, cfg.Limits.RequestsPerSecond)
	assert.Equal(t, 7, cfg.Limits.Burst)
}

func TestGetSet_Errors(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"empty key", "", "x"},
		{"unknown section", "cache.enabled", "true"},
		{"unknown field", "backend.colour", "red"},
		{"section not value", "backend", "x"},
		{"not a struct", "server.port.number", "1"},
		{"bad int", "server.port", "eighty"},
		{"wrong type", "server.host", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, cfg.Set(tt.key, tt.value))
		})
	}

	_, err := cfg.Get("nope.nothing")
	assert.Error(t, err)
}

func TestGetAllKeys_Resolvable(t *testing.T) {
	cfg := Default()
	keys := GetAllKeys()
	assert.Contains(t, keys, "backend.api_key")
	assert.Contains(t, keys, "limits.breaker_cooldown_secs")
	for _, key := range keys {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
	assert.True(t, IsSecret("backend.api_key"))
	assert.False(t, IsSecret("backend.model"))
}

// =============================================================================
// SAVE
// =============================================================================

func TestSaveTo_RoundTrip(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Backend.Provider = ProviderOllama
	cfg.Generation.Tone = "cozy"
	cfg.Storage.MaxHistory = 10
	require.NoError(t, SaveTo(cfg, path))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# emojify configuration file")
	assert.Contains(t, string(raw), "[generation]")

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "[generation]\ndensity = \"few\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	require.NoError(t, watch(ctx, path, 20*time.Millisecond, func(cfg *Config, err error) {
		if err == nil {
			changes <- cfg
		}
	}))

	writeConfig(t, path, "[generation]\ndensity = \"absurd\"\n")

	select {
	case cfg := <-changes:
		assert.Equal(t, "absurd", cfg.Generation.Density)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatch_ReportsInvalidReload(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "[backend]\nprovider = \"openai\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 4)
	require.NoError(t, watch(ctx, path, 20*time.Millisecond, func(cfg *Config, err error) {
		if err != nil {
			errs <- err
		}
	}))

	writeConfig(t, path, "[backend]\nprovider = \"fax\"\n")

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "backend.provider")
	case <-time.After(5 * time.Second):
		t.Fatal("no reload error after invalid write")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "gone", "config.toml"), func(*Config, error) {})
	assert.Error(t, err)
}

// =============================================================================
// GLOBAL
// =============================================================================

// TestConfig_ConcurrentAccess checks Global and SetGlobal under the race detector.
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolateEnv(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.Backend.Model = "gpt-4o-mini"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestGlobal_LoadsOnce(t *testing.T) {
	home := isolateEnv(t)
	writeConfig(t, filepath.Join(home, ".emojify", "config.toml"), "[ollama]\nmodel = \"mistral\"\n")
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	first := Global()
	assert.Equal(t, "mistral", first.Ollama.Model)
	assert.Same(t, first, Global())

	replacement := Default()
	SetGlobal(replacement)
	assert.Same(t, replacement, Global())
}
