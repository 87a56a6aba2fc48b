// Package config provides configuration loading for the vcschema CLI and
// HTTP service.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete vcschema configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Log       LogConfig       `yaml:"log"`
	UI        UIConfig        `yaml:"ui"`
}

// ServerConfig configures the HTTP editor API
type ServerConfig struct {
	// Addr is the listen address (default: 127.0.0.1:8080)
	Addr string `yaml:"addr"`
}

// StoreConfig configures template persistence
type StoreConfig struct {
	// Path is the SQLite database file (default: vcschema.db)
	Path string `yaml:"path"`
}

// NormalizeConfig configures the JSON-LD normalization check
type NormalizeConfig struct {
	// Offline restricts context resolution to the bundled contexts instead
	// of fetching unknown context URLs
	Offline bool `yaml:"offline"`
	// Timeout bounds one normalization check
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// UIConfig configures user-facing output
type UIConfig struct {
	// Lang is the message language (en or ja)
	Lang string `yaml:"lang"`
	// Theme is the colour theme of CLI output (light or dark)
	Theme string `yaml:"theme"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server:    ServerConfig{Addr: "127.0.0.1:8080"},
		Store:     StoreConfig{Path: "vcschema.db"},
		Normalize: NormalizeConfig{Timeout: 10 * time.Second},
		Log:       LogConfig{Level: "info"},
		UI:        UIConfig{Lang: "en", Theme: "light"},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Normalize.Timeout <= 0 {
		return fmt.Errorf("normalize.timeout must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.UI.Lang {
	case "en", "ja":
	default:
		return fmt.Errorf("ui.lang must be en or ja, got %q", c.UI.Lang)
	}
	switch c.UI.Theme {
	case "light", "dark":
	default:
		return fmt.Errorf("ui.theme must be light or dark, got %q", c.UI.Theme)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	// A file can only switch offline mode on; VCSCHEMA_OFFLINE=false turns it off.
	if other.Normalize.Offline {
		c.Normalize.Offline = true
	}
	if other.Normalize.Timeout != 0 {
		c.Normalize.Timeout = other.Normalize.Timeout
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.UI.Lang != "" {
		c.UI.Lang = other.UI.Lang
	}
	if other.UI.Theme != "" {
		c.UI.Theme = other.UI.Theme
	}
}
