// Package config loads the ambient settings of the engine: logging and
// diagnostic-snapshot preferences. It deliberately carries no topology
// settings — the ten-site, twenty-variable topology is fixed and never
// configurable.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root ambient configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// LoggingConfig controls how log output is rendered.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"DISTXN_LOG_LEVEL"`   // debug|info|warn|error
	Format string `yaml:"format" env:"DISTXN_LOG_FORMAT"` // text|json
}

// SnapshotConfig controls the optional diagnostic dump exporter.
type SnapshotConfig struct {
	Codec string `yaml:"codec"` // none|snappy|lz4|zstd
}

// Default returns the engine's default ambient configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Snapshot: SnapshotConfig{
			Codec: "none",
		},
	}
}

// LoadFile reads a YAML config file and overlays it on Default().
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv overlays ambient-only environment overrides. The engine's
// transactional behavior never consults the environment — only these
// presentation-layer knobs do.
func (c *Config) LoadFromEnv() {
	if level := os.Getenv("DISTXN_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if format := os.Getenv("DISTXN_LOG_FORMAT"); format != "" {
		c.Logging.Format = strings.ToLower(format)
	}
}
