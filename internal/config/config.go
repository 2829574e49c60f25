// Package config loads hornkb configuration from YAML with sensible
// defaults for every field.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"hornkb/internal/logging"
)

// Config holds all hornkb configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Watch     WatchConfig     `yaml:"watch"`
	Logging   logging.Config  `yaml:"logging"`
}

// KnowledgeConfig tunes the knowledge base.
type KnowledgeConfig struct {
	// FactLimit is the soft fact-collection capacity; crossing 85%
	// utilization logs a warning. 0 disables the check.
	FactLimit int `yaml:"fact_limit"`
	// DepthWarn is the recursive ingest depth past which a warning is
	// logged. 0 disables the check.
	DepthWarn int `yaml:"depth_warn"`
}

// WatchConfig tunes the knowledge file watcher.
type WatchConfig struct {
	// Debounce is how long a changed file must stay quiet before a reload.
	Debounce time.Duration `yaml:"debounce"`
	// Extension selects which files in the watched directory count as
	// knowledge files.
	Extension string `yaml:"extension"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "hornkb",
		Version: "1.0.0",
		Knowledge: KnowledgeConfig{
			FactLimit: 100000,
			DepthWarn: 64,
		},
		Watch: WatchConfig{
			Debounce:  500 * time.Millisecond,
			Extension: ".kb",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error: the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
