// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

// Package config loads exporter configuration via Koanf v2 with layered
// sources (highest priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. ICHNAEA_* environment variables
//
// Environment variable names map to config paths by lowercasing and
// splitting on the first underscore after the prefix:
//
//	ICHNAEA_DATABASE_PATH      -> database.path
//	ICHNAEA_EXPORT_PAGE_SIZE   -> export.page_size
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/karthiklsarma/ichnaea/internal/validation"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"location-export.yaml",
	"location-export.yml",
	"/etc/ichnaea/location-export.yaml",
	"/etc/ichnaea/location-export.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "ICHNAEA_CFG"

// envPrefix selects which environment variables feed the config layer.
const envPrefix = "ICHNAEA_"

// Config is the process-wide configuration, constructed once by the caller
// and never mutated during a run.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Export   ExportConfig   `koanf:"export"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig selects and tunes the read-side data source.
type DatabaseConfig struct {
	// Driver is the database/sql driver: duckdb or sqlite.
	Driver string `koanf:"driver" validate:"required,oneof=duckdb sqlite"`

	// Path is the database file path. Required to run an export; its
	// absence is reported as a usage error before any file is created.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (DuckDB only).
	MaxMemory string `koanf:"max_memory"`

	// Threads sets the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads" validate:"gte=0"`
}

// ExportConfig tunes the scan loop and the output stream.
type ExportConfig struct {
	// PageSize is the scan window size in rows.
	PageSize int `koanf:"page_size" validate:"gt=0"`

	// CompressionLevel is the gzip level for the output stream (1-9).
	CompressionLevel int `koanf:"compression_level" validate:"gte=1,lte=9"`

	// PagesPerSecond throttles the scan loop. 0 = unlimited.
	PagesPerSecond float64 `koanf:"pages_per_second" validate:"gte=0"`

	// Manifest writes a <destination>.manifest.json sidecar on success.
	Manifest bool `koanf:"manifest"`
}

// LoggingConfig mirrors logging.Config for the koanf layer.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:    "duckdb",
			Path:      "",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Export: ExportConfig{
			PageSize:         25000,
			CompressionLevel: 6,
			PagesPerSecond:   0,
			Manifest:         false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// ICHNAEA_* environment variables. An explicit path (from --config) takes
// precedence over the ICHNAEA_CFG variable and the well-known locations.
func Load(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := explicitPath
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration against its validate tags.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c)
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		return ""
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps an ICHNAEA_* variable name to a koanf path.
// The section is the segment before the first underscore; the rest keeps
// its underscores (ICHNAEA_EXPORT_PAGE_SIZE -> export.page_size).
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	idx := strings.Index(s, "_")
	if idx <= 0 {
		return s
	}
	return s[:idx] + "." + s[idx+1:]
}
