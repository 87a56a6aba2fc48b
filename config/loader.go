package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "vcschema.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/vcschema"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "VCSCHEMA_"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	getenv func(string) string
	dir    string
	home   string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger, getenv: os.Getenv}
	if cwd, err := os.Getwd(); err == nil {
		l.dir = cwd
	}
	if home, err := os.UserHomeDir(); err == nil {
		l.home = home
	}
	return l
}

// WithDir sets the directory the project config search starts from.
func (l *Loader) WithDir(dir string) *Loader {
	l.dir = dir
	return l
}

// WithHome sets the home directory holding the user config.
func (l *Loader) WithHome(home string) *Loader {
	l.home = home
	return l
}

// WithEnv replaces os.Getenv, for tests.
func (l *Loader) WithEnv(getenv func(string) string) *Loader {
	l.getenv = getenv
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/vcschema/config.yaml)
// 3. Project config (vcschema.yaml in current or parent directories)
// 4. .env in the project directory, then VCSCHEMA_* environment variables
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	if l.home != "" {
		userConfigPath := filepath.Join(l.home, UserConfigDir, UserConfigFile)
		if userConfig, err := LoadFromFile(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		projectConfig, err := LoadFromFile(projectConfigPath)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
		config.Merge(projectConfig)
	} else {
		l.logger.Debug("No project config found")
	}

	var dotenv map[string]string
	if l.dir != "" {
		envPath := filepath.Join(l.dir, ".env")
		if m, err := godotenv.Read(envPath); err == nil {
			l.logger.Debug("Loaded env file", slog.String("path", envPath))
			dotenv = m
		}
	}
	if err := l.applyEnv(config, dotenv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFile loads the defaults, then path, then VCSCHEMA_* variables. The user
// and project config search is skipped.
func (l *Loader) LoadFile(path string) (*Config, error) {
	config := DefaultConfig()
	fileConfig, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	config.Merge(fileConfig)
	if err := l.applyEnv(config, nil); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv overrides config members from VCSCHEMA_* variables. Process
// environment values win over values from the .env file.
func (l *Loader) applyEnv(c *Config, dotenv map[string]string) error {
	lookup := func(name string) string {
		if v := l.getenv(EnvPrefix + name); v != "" {
			return v
		}
		return dotenv[EnvPrefix+name]
	}
	str := func(name string, dst *string) {
		if v := lookup(name); v != "" {
			*dst = v
		}
	}
	str("ADDR", &c.Server.Addr)
	str("STORE", &c.Store.Path)
	str("LOG_LEVEL", &c.Log.Level)
	str("LANG", &c.UI.Lang)
	str("THEME", &c.UI.Theme)

	if v := lookup("OFFLINE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sOFFLINE: %w", EnvPrefix, err)
		}
		c.Normalize.Offline = b
	}
	if v := lookup("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Normalize.Timeout = d
	}
	return nil
}

// findProjectConfig searches for vcschema.yaml in the start directory and its parents
func (l *Loader) findProjectConfig() string {
	dir := l.dir
	for dir != "" {
		path := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

