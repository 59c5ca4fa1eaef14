// Package config loads run configuration from JSON and applies
// defaults, so a bare invocation works against the built-in source
// registry.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SourceConfig overrides one registered source for a run.
type SourceConfig struct {
	Name     string `json:"name"`
	Pattern  string `json:"pattern,omitempty"` // replaces the registered shop-key pattern
	Disabled bool   `json:"disabled,omitempty"`
	DelayMS  int    `json:"delay_ms,omitempty"` // per-row throttle for this source
}

// Config is the full run configuration.
type Config struct {
	Workers        int               `json:"workers"`         // concurrent source budget
	TimeoutSeconds int               `json:"timeout_seconds"` // per-call fetch timeout
	RunTimeoutSec  int               `json:"run_timeout_seconds,omitempty"`
	DelayMS        int               `json:"delay_ms,omitempty"` // default per-row throttle
	DataDir        string            `json:"data_dir"`
	Pinned         []string          `json:"pinned,omitempty"`  // comparison columns shown first
	Aliases        map[string]string `json:"aliases,omitempty"` // shop-key renames applied at ingestion
	Sources        []SourceConfig    `json:"sources,omitempty"`
	ShowUI         bool              `json:"show_ui,omitempty"` // headed browser for debugging
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Workers:        8,
		TimeoutSeconds: 15,
		DataDir:        "data",
	}
}

// Load reads a JSON config file and fills in defaults for anything the
// file leaves unset.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
}

// Timeout returns the per-call timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RunTimeout returns the optional whole-run deadline; zero means none.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSec) * time.Second
}

// SourceOverride finds the override for a source identity, if any.
func (c *Config) SourceOverride(name string) (SourceConfig, bool) {
	for _, sc := range c.Sources {
		if sc.Name == name {
			return sc, true
		}
	}
	return SourceConfig{}, false
}

// SourceDelay returns the per-row throttle for a source, falling back
// to the run-wide default.
func (c *Config) SourceDelay(name string) time.Duration {
	if sc, ok := c.SourceOverride(name); ok && sc.DelayMS > 0 {
		return time.Duration(sc.DelayMS) * time.Millisecond
	}
	return time.Duration(c.DelayMS) * time.Millisecond
}
