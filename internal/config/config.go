// Package config handles TOML configuration for Mittari.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yairfalse/mittari/pkg/inventory"
)

// Config is the root configuration structure.
type Config struct {
	Providers   ProvidersConfig   `toml:"providers"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Timeouts    TimeoutsConfig    `toml:"timeouts"`
	Output      OutputConfig      `toml:"output"`
	Log         LogConfig         `toml:"log"`
}

// ProvidersConfig selects which clouds to inventory.
type ProvidersConfig struct {
	Enabled []string `toml:"enabled"`
	// Scopes optionally restricts the run to the listed scope ids
	// (project ids, subscription ids, compartment OCIDs). Empty means
	// every accessible scope.
	Scopes []string `toml:"scopes"`
	// Kinds optionally restricts the resource kinds. Empty means all.
	Kinds []string `toml:"kinds"`
}

// ConcurrencyConfig caps each pipeline stage separately; a slow stage
// must not starve another. Different provider APIs tolerate different
// rates, so sizing caps can also be overridden per kind.
type ConcurrencyConfig struct {
	Scopes  int            `toml:"scopes"`
	Sizing  int            `toml:"sizing"`
	PerKind map[string]int `toml:"per_kind"`
}

// TimeoutsConfig holds the wall-clock deadlines the pools enforce.
type TimeoutsConfig struct {
	TaskStr  string `toml:"task"`
	ScopeStr string `toml:"scope"`
	Task     time.Duration
	Scope    time.Duration
}

// OutputConfig controls where reports land.
type OutputConfig struct {
	Dir string `toml:"dir"`
	Zip bool   `toml:"zip"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Load reads and parses a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := parseTimeouts(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := parseTimeouts(cfg); err != nil {
		panic(err) // defaults always parse
	}
	return cfg
}

func applyDefaults(cfg *Config) {
	if len(cfg.Providers.Enabled) == 0 {
		cfg.Providers.Enabled = []string{"gcp"}
	}
	if cfg.Concurrency.Scopes == 0 {
		cfg.Concurrency.Scopes = 10
	}
	if cfg.Concurrency.Sizing == 0 {
		cfg.Concurrency.Sizing = 15
	}
	if cfg.Timeouts.TaskStr == "" {
		cfg.Timeouts.TaskStr = "2m"
	}
	if cfg.Timeouts.ScopeStr == "" {
		cfg.Timeouts.ScopeStr = "20m"
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "reports"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func parseTimeouts(cfg *Config) error {
	task, err := time.ParseDuration(cfg.Timeouts.TaskStr)
	if err != nil {
		return fmt.Errorf("parse timeouts.task %q: %w", cfg.Timeouts.TaskStr, err)
	}
	scope, err := time.ParseDuration(cfg.Timeouts.ScopeStr)
	if err != nil {
		return fmt.Errorf("parse timeouts.scope %q: %w", cfg.Timeouts.ScopeStr, err)
	}
	cfg.Timeouts.Task = task
	cfg.Timeouts.Scope = scope
	return nil
}

// SizingCap returns the sizing concurrency cap for a kind, honoring
// per-kind overrides.
func (c *Config) SizingCap(kind inventory.Kind) int {
	if n, ok := c.Concurrency.PerKind[string(kind)]; ok && n > 0 {
		return n
	}
	return c.Concurrency.Sizing
}

// Kinds resolves the configured kind filter into the typed list.
func (c *Config) Kinds() ([]inventory.Kind, error) {
	if len(c.Providers.Kinds) == 0 {
		return inventory.AllKinds(), nil
	}
	kinds := make([]inventory.Kind, 0, len(c.Providers.Kinds))
	for _, raw := range c.Providers.Kinds {
		k := inventory.Kind(raw)
		if !k.Valid() {
			return nil, fmt.Errorf("unknown resource kind %q", raw)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Providers.Enabled) == 0 {
		return fmt.Errorf("providers: at least one provider required")
	}
	if c.Concurrency.Scopes < 1 {
		return fmt.Errorf("concurrency: scopes must be at least 1 (got %d)", c.Concurrency.Scopes)
	}
	if c.Concurrency.Sizing < 1 {
		return fmt.Errorf("concurrency: sizing must be at least 1 (got %d)", c.Concurrency.Sizing)
	}
	if c.Timeouts.Task <= 0 {
		return fmt.Errorf("timeouts: task must be positive")
	}
	if c.Timeouts.Scope <= 0 {
		return fmt.Errorf("timeouts: scope must be positive")
	}
	if _, err := c.Kinds(); err != nil {
		return err
	}
	return nil
}
