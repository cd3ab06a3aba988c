package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(DefaultConfig()))
}

func TestLoadParsesFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
data_dir = "/var/lib/tidewatch"
api_base_url = "https://staging.tidewatch.app"
api_token = "tok-abc"
log_level = "debug"

[sync]
drain_attempts = 5
drain_backoff = "250ms"
abandon_after = 10
retention_days = 60
refresh_interval = "5m"

[alerts]
enabled = false
pressure_drop_hpa = 6.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/tidewatch", cfg.DataDir)
	assert.Equal(t, "https://staging.tidewatch.app", cfg.APIBaseURL)
	assert.Equal(t, "tok-abc", cfg.APIToken)
	assert.Equal(t, "debug", cfg.LogLevel)

	assert.Equal(t, 5, cfg.Sync.DrainAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.DrainBackoff.Std())
	assert.Equal(t, 10, cfg.Sync.AbandonAfter)
	assert.Equal(t, 60, cfg.Sync.RetentionDays)
	assert.Equal(t, 5*time.Minute, cfg.Sync.RefreshInterval.Std())

	assert.False(t, cfg.Alerts.Enabled)
	assert.Equal(t, 6.5, cfg.Alerts.PressureDropHPa)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `api_token = "tok-abc"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tok-abc", cfg.APIToken)
	assert.Equal(t, defaultAPIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, defaultDrainAttempts, cfg.Sync.DrainAttempts)
	assert.Equal(t, 0, cfg.Sync.AbandonAfter, "abandonment stays disabled unless configured")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `api_base_urll = "https://typo.example"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_base_urll")
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[sync]
refresh_interval = "often"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, defaultAPIBaseURL, cfg.APIBaseURL)
}

func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
data_dir = "/from/file"
api_base_url = "https://from-file.example"
`)

	cliDataDir := "/from/cli"

	cfg, err := Resolve(
		EnvOverrides{
			ConfigPath: path,
			DataDir:    "/from/env",
			APIBaseURL: "https://from-env.example",
			APIToken:   "tok-env",
		},
		CLIOverrides{DataDir: &cliDataDir},
	)
	require.NoError(t, err)

	// CLI beats env beats file.
	assert.Equal(t, "/from/cli", cfg.DataDir)
	assert.Equal(t, "https://from-env.example", cfg.APIBaseURL)
	assert.Equal(t, "tok-env", cfg.APIToken)
}

func TestResolveVerboseAndQuiet(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `log_level = "warn"`)

	cfg, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)

	cfg, err = Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty api url", func(c *Config) { c.APIBaseURL = "" }},
		{"zero drain attempts", func(c *Config) { c.Sync.DrainAttempts = 0 }},
		{"zero retention days", func(c *Config) { c.Sync.RetentionDays = 0 }},
		{"negative abandon", func(c *Config) { c.Sync.AbandonAfter = -1 }},
		{"zero pressure threshold", func(c *Config) { c.Alerts.PressureDropHPa = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			assert.Error(t, Validate(cfg))
		})
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	t.Parallel()

	var d Duration

	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Std())

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
