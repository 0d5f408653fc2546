// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and watches the application configuration.
//
// Configuration is TOML (or JSON, detected by extension) with
// environment variable overrides applied after the file. The zero
// configuration is usable: every field has a default, so a missing
// file is not an error.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIGURATION TYPES
// =============================================================================

// Config is the full application configuration.
type Config struct {
	Ollama  OllamaConfig  `toml:"ollama" json:"ollama"`
	Voice   VoiceConfig   `toml:"voice" json:"voice"`
	History HistoryConfig `toml:"history" json:"history"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Export  ExportConfig  `toml:"export" json:"export"`
}

// OllamaConfig controls the connection to the local Ollama server.
type OllamaConfig struct {
	BaseURL              string `toml:"base_url" json:"base_url"`
	Model                string `toml:"model" json:"model"`
	TimeoutSeconds       int    `toml:"timeout_seconds" json:"timeout_seconds"`
	StreamTimeoutSeconds int    `toml:"stream_timeout_seconds" json:"stream_timeout_seconds"`
}

// VoiceConfig names the external speech commands. Empty commands
// disable the corresponding feature.
type VoiceConfig struct {
	ListenCommand string   `toml:"listen_command" json:"listen_command"`
	ListenArgs    []string `toml:"listen_args" json:"listen_args"`
	SpeakCommand  string   `toml:"speak_command" json:"speak_command"`
	SpeakArgs     []string `toml:"speak_args" json:"speak_args"`
	SpeakStdin    bool     `toml:"speak_stdin" json:"speak_stdin"`
}

// HistoryConfig controls the SQLite session archive.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	Theme          string `toml:"theme" json:"theme"`
	RenderMarkdown bool   `toml:"render_markdown" json:"render_markdown"`
	ShowTimestamps bool   `toml:"show_timestamps" json:"show_timestamps"`
}

// ExportConfig controls where exports are written.
type ExportConfig struct {
	Directory string `toml:"directory" json:"directory"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the configuration used when no file exists.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Ollama: OllamaConfig{
			BaseURL:              "http://127.0.0.1:11434",
			TimeoutSeconds:       30,
			StreamTimeoutSeconds: 120,
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    filepath.Join(home, ".ollamachat", "history.db"),
		},
		UI: UIConfig{
			Theme:          "", // empty follows the terminal background
			RenderMarkdown: true,
		},
		Export: ExportConfig{
			Directory: filepath.Join(home, ".ollamachat", "exports"),
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ollamachat", "config.toml")
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration at path, applies environment overrides,
// and validates the result. A missing file yields the defaults, still
// with overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults apply.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if strings.EqualFold(filepath.Ext(path), ".json") {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		} else {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies OLLAMACHAT_* environment variables on top
// of the loaded file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OLLAMACHAT_BASE_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("OLLAMACHAT_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}
	if v := os.Getenv("OLLAMACHAT_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
		cfg.History.Enabled = true
	}
	if v := os.Getenv("OLLAMACHAT_EXPORT_DIR"); v != "" {
		cfg.Export.Directory = v
	}
	if v := os.Getenv("OLLAMACHAT_THEME"); v != "" {
		cfg.UI.Theme = v
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("config: ollama.base_url must not be empty")
	}
	if !strings.HasPrefix(c.Ollama.BaseURL, "http://") && !strings.HasPrefix(c.Ollama.BaseURL, "https://") {
		return fmt.Errorf("config: ollama.base_url must be an http(s) URL, got %q", c.Ollama.BaseURL)
	}
	if c.Ollama.TimeoutSeconds < 0 || c.Ollama.StreamTimeoutSeconds < 0 {
		return fmt.Errorf("config: timeouts must not be negative")
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("config: history.path required when history is enabled")
	}
	switch c.UI.Theme {
	case "", "dark", "light":
	default:
		return fmt.Errorf("config: unknown theme %q", c.UI.Theme)
	}
	return nil
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// =============================================================================
// GLOBAL ACCESS
// =============================================================================

var (
	globalMu  sync.RWMutex
	globalCfg = Default()
)

// Get returns the current global configuration.
func Get() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalCfg
}

// Set replaces the global configuration.
func Set(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = cfg
}
