// Package config loads the .versioned.yaml workspace configuration used by
// the versioned command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/albertocavalcante/go-versioned/lockfile"
	"github.com/albertocavalcante/go-versioned/manifest"
)

// DefaultFilename is the configuration file looked up in the workspace root.
const DefaultFilename = ".versioned.yaml"

// Config holds the workspace configuration.
type Config struct {
	// Manifest is the VERSIONED file, relative to the workspace root.
	Manifest string `yaml:"manifest"`

	// Lockfile is the generation lock, relative to the workspace root.
	Lockfile string `yaml:"lockfile"`

	// Concurrency bounds the number of targets generated at once.
	Concurrency int `yaml:"concurrency"`

	// PruneImports set to false disables import pruning for every target,
	// whatever the manifest says.
	PruneImports bool `yaml:"prune_imports"`

	// GeneratedHeader adds the "Code generated" comment to emitted files.
	GeneratedHeader bool `yaml:"generated_header"`

	Watch WatchConfig `yaml:"watch"`

	Logging LoggingConfig `yaml:"logging"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Debounce is the quiet period after a change before regenerating.
	Debounce string `yaml:"debounce"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ValidLevels lists the accepted logging levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// ValidFormats lists the accepted logging formats.
var ValidFormats = []string{"json", "text"}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Manifest:        manifest.DefaultFilename,
		Lockfile:        lockfile.DefaultFilename,
		Concurrency:     runtime.GOMAXPROCS(0),
		PruneImports:    true,
		GeneratedHeader: true,
		Watch: WatchConfig{
			Debounce: "200ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file over the defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("VERSIONED_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if n, err := strconv.Atoi(os.Getenv("VERSIONED_CONCURRENCY")); err == nil && n > 0 {
		c.Concurrency = n
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if !slices.Contains(ValidLevels, c.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	if !slices.Contains(ValidFormats, c.Logging.Format) {
		return fmt.Errorf("invalid logging format: %s (valid: %v)", c.Logging.Format, ValidFormats)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("invalid watch debounce %q: %w", c.Watch.Debounce, err)
	}
	return nil
}

// GetDebounce returns the watch debounce, falling back to 200ms.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 200 * time.Millisecond
	}
	return d
}

// Resolve returns path resolved against the workspace root.
func Resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
