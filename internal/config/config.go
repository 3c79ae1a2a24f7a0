// Package config provides centralized configuration for the indexer and
// query engine. All tunables named in the external interface MUST be
// defined here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the default config file name inside a data directory.
const ConfigFileName = "sqlindexer.yaml"

// DefaultIndexThreshold is the default psql-index-threshold.
const DefaultIndexThreshold = 1_000_000

// Config holds every externally-configurable option of the indexer.
type Config struct {
	// PsqlURL is the connection string for the indexer writer path.
	PsqlURL string `yaml:"psql_url"`

	// PsqlPathToSchema is an optional file; if set and the indexer starts
	// from block 0, each line is executed as one statement to bootstrap
	// the schema.
	PsqlPathToSchema string `yaml:"psql_path_to_schema,omitempty"`

	// PsqlIndexThreshold is the block-gap threshold controlling
	// index/foreign-key drop and recreate (see internal/ingest/ddl.go).
	PsqlIndexThreshold uint32 `yaml:"psql_index_threshold"`

	// AhsqlURL is the connection string for the read-only query engine.
	AhsqlURL string `yaml:"ahsql_url"`

	// WebserverThreadPoolSize sizes the read-side connection pool. A
	// value of 0 means "auto": the CLI entrypoint queries
	// pg_settings.max_connections via dbpool.RecommendedSize and uses
	// that instead.
	WebserverThreadPoolSize int `yaml:"webserver_thread_pool_size"`

	// Logging controls the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`
}

// DefaultConfig returns a configuration with the documented defaults.
// PsqlURL and AhsqlURL are left blank; callers must set them (via file or
// CLI override) or Validate will reject the configuration.
func DefaultConfig() *Config {
	return &Config{
		PsqlIndexThreshold:      DefaultIndexThreshold,
		WebserverThreadPoolSize: 4,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate returns a ConfigError describing the first missing required
// option, or nil if the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.PsqlURL) == "" {
		return &Error{Option: "psql-url", Reason: "required"}
	}
	if strings.TrimSpace(c.AhsqlURL) == "" {
		return &Error{Option: "ahsql-url", Reason: "required"}
	}
	if c.WebserverThreadPoolSize < 0 {
		return &Error{Option: "webserver-thread-pool-size", Reason: "must not be negative (0 means auto-detect)"}
	}
	return nil
}

// Error is a ConfigError: a missing or invalid configuration option found
// during init. Callers should treat it as fatal (abort init), per
// spec.md §7.
type Error struct {
	Option string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Option, e.Reason)
}

// Load reads a YAML config file from dataDir, falling back to defaults
// (and writing them out) if the file does not exist.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, ConfigFileName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# sqlindexer configuration\n# Generated automatically on first run\n\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
