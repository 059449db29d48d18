package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_NonExistent(t *testing.T) {
	// When config file doesn't exist, should return defaults
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, DefaultAPIBaseURL)
	}
	if cfg.MarketRefreshSeconds != DefaultMarketRefreshSeconds {
		t.Errorf("MarketRefreshSeconds = %d, want %d", cfg.MarketRefreshSeconds, DefaultMarketRefreshSeconds)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `api_base_url: "https://finbuddy.example.com/api"
request_timeout_seconds: 10
market_refresh_seconds: 15
wishlist_refresh_seconds: 120
search_debounce_millis: 500
log_level: debug
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.APIBaseURL != "https://finbuddy.example.com/api" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Errorf("RequestTimeout() = %v, want 10s", cfg.RequestTimeout())
	}
	if cfg.MarketRefresh() != 15*time.Second {
		t.Errorf("MarketRefresh() = %v, want 15s", cfg.MarketRefresh())
	}
	if cfg.WishlistRefresh() != 2*time.Minute {
		t.Errorf("WishlistRefresh() = %v, want 2m", cfg.WishlistRefresh())
	}
	if cfg.SearchDebounce() != 500*time.Millisecond {
		t.Errorf("SearchDebounce() = %v, want 500ms", cfg.SearchDebounce())
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_PartialConfig(t *testing.T) {
	// Config with only some fields should use defaults for missing
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `log_level: info
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want default %q", cfg.APIBaseURL, DefaultAPIBaseURL)
	}
	if cfg.SearchDebounceMillis != DefaultSearchDebounceMillis {
		t.Errorf("SearchDebounceMillis = %d, want default %d", cfg.SearchDebounceMillis, DefaultSearchDebounceMillis)
	}
	if cfg.WishlistRefreshSeconds != DefaultWishlistRefreshSeconds {
		t.Errorf("WishlistRefreshSeconds = %d, want default %d", cfg.WishlistRefreshSeconds, DefaultWishlistRefreshSeconds)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `invalid: yaml: content: [broken`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() error = nil, want error for invalid YAML")
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.APIBaseURL = "https://save.example.com/api"
	cfg.MarketRefreshSeconds = 45

	if err := Save(configPath, cfg); err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Failed to stat config file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Config file permissions = %o, want %o", perm, 0600)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() after Save() error = %v", err)
	}

	if loaded.APIBaseURL != cfg.APIBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", loaded.APIBaseURL, cfg.APIBaseURL)
	}
	if loaded.MarketRefreshSeconds != 45 {
		t.Errorf("MarketRefreshSeconds = %d, want 45", loaded.MarketRefreshSeconds)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "deep", "config.yaml")

	if err := Save(configPath, DefaultConfig()); err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("Config file not created: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{
		EnvAPIBaseURL: "http://backend:9000/api",
		EnvLogLevel:   "debug",
	}

	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.APIBaseURL != "http://backend:9000/api" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.LogFile != "" {
		t.Errorf("LogFile = %q, want empty", cfg.LogFile)
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{"api_base_url", "http://x/api", false},
		{"market_refresh_seconds", "10", false},
		{"market_refresh_seconds", "0", true},
		{"requests_per_second", "2.5", false},
		{"requests_per_second", "abc", true},
		{"unknown", "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Set(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, DefaultAPIBaseURL)
	}
	if cfg.WishlistRefresh() != time.Minute {
		t.Errorf("WishlistRefresh() = %v, want 1m", cfg.WishlistRefresh())
	}
	if cfg.SearchDebounce() != 300*time.Millisecond {
		t.Errorf("SearchDebounce() = %v, want 300ms", cfg.SearchDebounce())
	}
}

func TestConfigDir_WithXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	want := "/custom/config/finbuddy"
	if dir := ConfigDir(); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}

func TestConfigDir_WithoutXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".config", "finbuddy")
	if dir := ConfigDir(); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}

func TestConfigPath_WithXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	if path := ConfigPath(); path != "/custom/config/finbuddy/config.yaml" {
		t.Errorf("ConfigPath() = %q", path)
	}
	if path := PrefsPath(); path != "/custom/config/finbuddy/prefs.yaml" {
		t.Errorf("PrefsPath() = %q", path)
	}
}
