// Package config implements tidewatch configuration: TOML file parsing
// with typo detection, defaults, environment variable overrides, and CLI
// flag overrides, resolved in that order so flags always win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Duration wraps time.Duration so TOML values can be written as "10m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: parsing duration %q: %w", text, err)
	}

	*d = Duration(parsed)

	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SyncConfig tunes queue drain and retention behavior.
type SyncConfig struct {
	DrainAttempts int      `toml:"drain_attempts"`
	DrainBackoff  Duration `toml:"drain_backoff"`

	// AbandonAfter removes a queued mutation once its retry count reaches
	// this value. 0 disables abandonment (the default): a stuck queue is
	// visible in status output, a silently dropped write is not.
	AbandonAfter int `toml:"abandon_after"`

	RetentionDays   int      `toml:"retention_days"`
	RefreshInterval Duration `toml:"refresh_interval"`
}

// AlertsConfig tunes hazard detection.
type AlertsConfig struct {
	Enabled         bool    `toml:"enabled"`
	PressureDropHPa float64 `toml:"pressure_drop_hpa"`
}

// Config is the full tidewatch configuration.
type Config struct {
	DataDir    string `toml:"data_dir"`
	APIBaseURL string `toml:"api_base_url"`
	APIToken   string `toml:"api_token"`
	EventsURL  string `toml:"events_url"`
	LogLevel   string `toml:"log_level"`

	Sync   SyncConfig   `toml:"sync"`
	Alerts AlertsConfig `toml:"alerts"`
}

// Default values.
const (
	defaultAPIBaseURL      = "https://api.tidewatch.app"
	defaultEventsURL       = "wss://api.tidewatch.app/v1/events"
	defaultLogLevel        = "info"
	defaultDrainAttempts   = 3
	defaultDrainBackoff    = Duration(time.Second)
	defaultRetentionDays   = 30
	defaultRefreshInterval = Duration(10 * time.Minute)
	defaultPressureDropHPa = 4.0
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		DataDir:    defaultDataDir(),
		APIBaseURL: defaultAPIBaseURL,
		EventsURL:  defaultEventsURL,
		LogLevel:   defaultLogLevel,
		Sync: SyncConfig{
			DrainAttempts:   defaultDrainAttempts,
			DrainBackoff:    defaultDrainBackoff,
			AbandonAfter:    0,
			RetentionDays:   defaultRetentionDays,
			RefreshInterval: defaultRefreshInterval,
		},
		Alerts: AlertsConfig{
			Enabled:         true,
			PressureDropHPa: defaultPressureDropHPa,
		},
	}
}

// defaultDataDir follows the XDG convention with a home-directory fallback.
func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "tidewatch")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".tidewatch"
	}

	return filepath.Join(home, ".local", "share", "tidewatch")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tidewatch", "config.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "tidewatch.toml"
	}

	return filepath.Join(home, ".config", "tidewatch", "config.toml")
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func Validate(cfg *Config) error {
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("config: api_base_url must not be empty")
	}

	if cfg.Sync.DrainAttempts < 1 {
		return fmt.Errorf("config: sync.drain_attempts must be at least 1, got %d", cfg.Sync.DrainAttempts)
	}

	if cfg.Sync.RetentionDays < 1 {
		return fmt.Errorf("config: sync.retention_days must be at least 1, got %d", cfg.Sync.RetentionDays)
	}

	if cfg.Sync.AbandonAfter < 0 {
		return fmt.Errorf("config: sync.abandon_after must not be negative, got %d", cfg.Sync.AbandonAfter)
	}

	if cfg.Alerts.PressureDropHPa <= 0 {
		return fmt.Errorf("config: alerts.pressure_drop_hpa must be positive, got %g", cfg.Alerts.PressureDropHPa)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", cfg.LogLevel)
	}

	return nil
}
