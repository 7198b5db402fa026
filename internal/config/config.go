// Package config holds the gosh CLI configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/goshlib/gosh"
)

// Config holds the global gosh configuration.
type Config struct {
	// Debug logs each pipeline's reconstructed text before execution.
	Debug bool `yaml:"debug"`
	// Pipefail: nil = default (enabled), otherwise the explicit value.
	Pipefail *bool        `yaml:"pipefail"`
	RunLog   RunLogConfig `yaml:"runlog"`
}

// RunLogConfig controls the hash-chained run log.
type RunLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		RunLog: RunLogConfig{
			Enabled: false,
			Path:    filepath.Join(home, ".local", "share", "gosh", "runlog.jsonl"),
		},
	}
}

// Load reads the config from the standard location
// (~/.config/gosh/config.yaml). If the file doesn't exist, returns the
// default config.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	path := filepath.Join(home, ".config", "gosh", "config.yaml")
	return LoadFrom(path)
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Expand ~ in the run log path.
	if cfg.RunLog.Path != "" && cfg.RunLog.Path[0] == '~' {
		home, _ := os.UserHomeDir()
		cfg.RunLog.Path = filepath.Join(home, cfg.RunLog.Path[1:])
	}

	return cfg, nil
}

// Apply pushes the configured toggles onto the runtime.
func (c *Config) Apply() {
	gosh.SetDebug(c.Debug)
	pipefail := true
	if c.Pipefail != nil {
		pipefail = *c.Pipefail
	}
	gosh.SetPipefail(pipefail)
}
