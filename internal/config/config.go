package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIBaseURL is the FinBuddy backend served locally by the Spring app.
	DefaultAPIBaseURL = "http://localhost:8080/api"

	DefaultRequestTimeoutSeconds  = 30
	DefaultRequestsPerSecond      = 10
	DefaultMarketRefreshSeconds   = 30
	DefaultWishlistRefreshSeconds = 60
	DefaultSearchDebounceMillis   = 300
	DefaultLogLevel               = "warn"

	appName = "finbuddy"
)

// Environment variables that override values read from the config file.
const (
	EnvAPIBaseURL = "FINBUDDY_API_BASE_URL"
	EnvLogLevel   = "FINBUDDY_LOG_LEVEL"
	EnvLogFile    = "FINBUDDY_LOG_FILE"
)

// Config holds the CLI configuration.
type Config struct {
	APIBaseURL             string  `yaml:"api_base_url" json:"api_base_url"`
	RequestTimeoutSeconds  int     `yaml:"request_timeout_seconds" json:"request_timeout_seconds"`
	RequestsPerSecond      float64 `yaml:"requests_per_second" json:"requests_per_second"`
	MarketRefreshSeconds   int     `yaml:"market_refresh_seconds" json:"market_refresh_seconds"`
	WishlistRefreshSeconds int     `yaml:"wishlist_refresh_seconds" json:"wishlist_refresh_seconds"`
	SearchDebounceMillis   int     `yaml:"search_debounce_millis" json:"search_debounce_millis"`
	LogLevel               string  `yaml:"log_level" json:"log_level"`
	LogFile                string  `yaml:"log_file,omitempty" json:"log_file,omitempty"`
}

// DefaultConfig returns a configuration populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:             DefaultAPIBaseURL,
		RequestTimeoutSeconds:  DefaultRequestTimeoutSeconds,
		RequestsPerSecond:      DefaultRequestsPerSecond,
		MarketRefreshSeconds:   DefaultMarketRefreshSeconds,
		WishlistRefreshSeconds: DefaultWishlistRefreshSeconds,
		SearchDebounceMillis:   DefaultSearchDebounceMillis,
		LogLevel:               DefaultLogLevel,
	}
}

// Load reads the config file at path. A missing file yields the defaults and
// fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.fillDefaults()
	return cfg, nil
}

// LoadWithEnv loads the config file, then applies a .env file from the working
// directory (if any) and FINBUDDY_* environment variables on top of it.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// godotenv never overwrites variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides fields from the given lookup function.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAPIBaseURL); v != "" {
		c.APIBaseURL = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
}

// Save writes cfg to path, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.APIBaseURL == "" {
		c.APIBaseURL = d.APIBaseURL
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = d.RequestTimeoutSeconds
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = d.RequestsPerSecond
	}
	if c.MarketRefreshSeconds <= 0 {
		c.MarketRefreshSeconds = d.MarketRefreshSeconds
	}
	if c.WishlistRefreshSeconds <= 0 {
		c.WishlistRefreshSeconds = d.WishlistRefreshSeconds
	}
	if c.SearchDebounceMillis <= 0 {
		c.SearchDebounceMillis = d.SearchDebounceMillis
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// MarketRefresh returns the market price polling interval.
func (c *Config) MarketRefresh() time.Duration {
	return time.Duration(c.MarketRefreshSeconds) * time.Second
}

// WishlistRefresh returns the wishlist auto-refresh interval.
func (c *Config) WishlistRefresh() time.Duration {
	return time.Duration(c.WishlistRefreshSeconds) * time.Second
}

// SearchDebounce returns the quiet period before a search is issued.
func (c *Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMillis) * time.Millisecond
}

// Set assigns a config field by its YAML key. Used by `fin configure set`.
func (c *Config) Set(key, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%s must be a positive integer", key)
		}
		return n, nil
	}

	var err error
	switch key {
	case "api_base_url":
		c.APIBaseURL = value
	case "request_timeout_seconds":
		c.RequestTimeoutSeconds, err = atoi()
	case "requests_per_second":
		var f float64
		f, err = strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("%s must be a positive number", key)
		}
		c.RequestsPerSecond = f
	case "market_refresh_seconds":
		c.MarketRefreshSeconds, err = atoi()
	case "wishlist_refresh_seconds":
		c.WishlistRefreshSeconds, err = atoi()
	case "search_debounce_millis":
		c.SearchDebounceMillis, err = atoi()
	case "log_level":
		c.LogLevel = value
	case "log_file":
		c.LogFile = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return err
}

// ConfigDir returns the FinBuddy configuration directory, honouring
// XDG_CONFIG_HOME.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

// ConfigPath returns the path of config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// PrefsPath returns the path of the durable preference file.
func PrefsPath() string {
	return filepath.Join(ConfigDir(), "prefs.yaml")
}

// DefaultLogPath returns the log file used when the TUI owns the terminal.
func DefaultLogPath() string {
	return filepath.Join(ConfigDir(), "fin.log")
}
