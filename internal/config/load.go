package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal — silently ignoring a typo in a
// safety-related config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// the defaults. Supports the zero-config first run.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// CLIOverrides carries flag values into config resolution. Pointer fields
// distinguish "not specified" from a zero value.
type CLIOverrides struct {
	ConfigPath string
	DataDir    *string
	APIBaseURL *string
	Verbose    bool
	Quiet      bool
}

// Resolve applies the override chain: defaults -> config file ->
// environment -> CLI flags. Flags always win, matching user expectations
// for one-off overrides.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.DataDir != "" {
		cfg.DataDir = env.DataDir
	}

	if env.APIBaseURL != "" {
		cfg.APIBaseURL = env.APIBaseURL
	}

	if env.APIToken != "" {
		cfg.APIToken = env.APIToken
	}

	if cli.DataDir != nil {
		cfg.DataDir = *cli.DataDir
	}

	if cli.APIBaseURL != nil {
		cfg.APIBaseURL = *cli.APIBaseURL
	}

	if cli.Verbose {
		cfg.LogLevel = "debug"
	} else if cli.Quiet {
		cfg.LogLevel = "error"
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
