// Package config loads prefkv settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDatabase is used when neither the file nor a flag names one.
	DefaultDatabase = "prefkv.db"
	// DefaultNamespace is the namespace commands act on by default.
	DefaultNamespace = "default"
	// DefaultLogLevel is the slog level name used without --verbose.
	DefaultLogLevel = "info"
	// DefaultFormat is the CLI output format.
	DefaultFormat = "text"
)

// Config holds CLI settings. Zero fields mean "not set".
type Config struct {
	Database  string `yaml:"database,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
	LogLevel  string `yaml:"log_level,omitempty"`
	Format    string `yaml:"format,omitempty"`
}

// Default returns a Config with every field set to its default.
func Default() Config {
	return Config{
		Database:  DefaultDatabase,
		Namespace: DefaultNamespace,
		LogLevel:  DefaultLogLevel,
		Format:    DefaultFormat,
	}
}

// Merge copies the non-empty fields of source into c.
func (c *Config) Merge(source *Config) {
	if source.Database != "" {
		c.Database = source.Database
	}
	if source.Namespace != "" {
		c.Namespace = source.Namespace
	}
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
	if source.Format != "" {
		c.Format = source.Format
	}
}

// Level parses LogLevel into an slog level.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Load reads a YAML config file and merges it over the defaults.
// An empty path yields the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	var loaded Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&loaded); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.Merge(&loaded)
	if _, err := cfg.Level(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}
