// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultStorageKey  = "deeptrace-theme"
	DefaultBackend     = "file"
	DefaultStylesheet  = "deeptrace"
	DefaultListen      = "127.0.0.1:8080"
	DefaultOrigin      = "http://localhost:8080"
	DefaultAPIURL      = "https://ai.baytides.org/api/generate"
	DefaultModel       = "qwen2.5:3b-instruct"
	DefaultTemperature = 0.7
	DefaultNumPredict  = 4096
	DefaultHistoryKeep = 500
	DefaultRedisPrefix = "deeptrace:prefs"
)

// Environment variables that override file configuration.
const (
	EnvAPIURL  = "CARL_API_URL"
	EnvModel   = "CARL_DEFAULT_MODEL"
	EnvDataDir = "DEEPTRACE_DATA_DIR"
)

// Config represents the deeptrace configuration.
type Config struct {
	Theme    ThemeConfig    `toml:"theme"`
	Server   ServerConfig   `toml:"server"`
	Analysis AnalysisConfig `toml:"analysis"`
	Redis    RedisConfig    `toml:"redis"`
}

// ThemeConfig holds theme preference settings.
type ThemeConfig struct {
	StorageKey        string   `toml:"storage_key"`         // Key the preference is stored under
	Backend           string   `toml:"backend"`             // file, memory, redis
	Stylesheet        string   `toml:"stylesheet"`          // Stylesheet name without .css extension
	HotReload         bool     `toml:"hot_reload"`          // Watch stylesheet files for changes
	HotReloadInterval Duration `toml:"hot_reload_interval"` // Quiet period before reloading
}

// ServerConfig holds dashboard settings.
type ServerConfig struct {
	Listen   string `toml:"listen"`    // host:port
	Origin   string `toml:"origin"`    // Public origin, scopes stored preferences
	PrintURL bool   `toml:"print_url"` // Print the dashboard URL on start
}

// AnalysisConfig holds analysis service settings.
type AnalysisConfig struct {
	APIURL       string   `toml:"api_url"`
	DefaultModel string   `toml:"default_model"`
	Timeout      Duration `toml:"timeout"`
	Temperature  float64  `toml:"temperature"`
	NumPredict   int      `toml:"num_predict"`
	History      bool     `toml:"history"`      // Record results to history.jsonl
	HistoryKeep  int      `toml:"history_keep"` // Max results kept (0 = unlimited)
}

// RedisConfig holds settings for the redis preference backend.
type RedisConfig struct {
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	Prefix   string   `toml:"prefix"`
	Timeout  Duration `toml:"timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Theme: ThemeConfig{
			StorageKey:        DefaultStorageKey,
			Backend:           DefaultBackend,
			Stylesheet:        DefaultStylesheet,
			HotReload:         true,
			HotReloadInterval: Duration(500 * time.Millisecond),
		},
		Server: ServerConfig{
			Listen: DefaultListen,
			Origin: DefaultOrigin,
		},
		Analysis: AnalysisConfig{
			APIURL:       DefaultAPIURL,
			DefaultModel: DefaultModel,
			Timeout:      Duration(30 * time.Second),
			Temperature:  DefaultTemperature,
			NumPredict:   DefaultNumPredict,
			History:      true,
			HistoryKeep:  DefaultHistoryKeep,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Prefix:  DefaultRedisPrefix,
			Timeout: Duration(2 * time.Second),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "deeptrace", "config.toml")
}

// DataPath returns the path to the data directory.
// DEEPTRACE_DATA_DIR wins, then XDG_DATA_HOME, otherwise ~/.local/share.
func DataPath() string {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return expandPath(dir)
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "deeptrace")
}

// PrefsPath returns the directory holding per-origin preference files.
func PrefsPath() string {
	return filepath.Join(DataPath(), "prefs")
}

// HistoryPath returns the path to the analysis history JSONL file.
func HistoryPath() string {
	return filepath.Join(DataPath(), "history.jsonl")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
// Environment overrides are applied after the file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.Analysis.APIURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Analysis.DefaultModel = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Theme.StorageKey) == "" {
		return errors.New("theme.storage_key must not be empty")
	}

	switch c.Theme.Backend {
	case "file", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid theme.backend %q, must be one of: file, memory, redis", c.Theme.Backend)
	}

	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("invalid server.listen %q: %w", c.Server.Listen, err)
	}

	if c.Analysis.Timeout < 0 {
		return fmt.Errorf("analysis.timeout must not be negative, got %s", c.Analysis.Timeout.Duration())
	}
	if c.Analysis.Temperature < 0 || c.Analysis.Temperature > 2 {
		return fmt.Errorf("analysis.temperature must be between 0 and 2, got %g", c.Analysis.Temperature)
	}
	if c.Analysis.NumPredict < 0 {
		return fmt.Errorf("analysis.num_predict must not be negative, got %d", c.Analysis.NumPredict)
	}
	return nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed and writes atomically via a temp file.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}
