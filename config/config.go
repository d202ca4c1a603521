// Package config provides configuration loading, hot reload and the
// process-wide active database.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danielafriyie/raccy-orm/core/convention"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized by LoadFromEnv and applied over file
// configuration by Load.
const (
	EnvDatabaseDriver = "RO_DATABASE_DRIVER"
	EnvDatabaseDSN    = "RO_DATABASE_DSN"
	EnvMaxOpenConns   = "RO_DATABASE_MAX_OPEN_CONNS"
	EnvLogLevel       = "RO_LOG_LEVEL"
	EnvLogFormat      = "RO_LOG_FORMAT"
	EnvMetricsEnabled = "RO_METRICS_ENABLED"
	EnvMetricsNS      = "RO_METRICS_NAMESPACE"
	EnvModelsDir      = "RO_MODELS_DIR"
)

// Config is the root configuration structure.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Models   ModelsConfig   `yaml:"models"`
}

// DatabaseConfig selects the active database.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // registered dialect: "sqlite", "sqlite-pure", "postgres", "duckdb"
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns,omitempty"` // 0 keeps the driver default
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// ModelsConfig locates YAML model declarations.
type ModelsConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	RO_DATABASE_DRIVER          - Dialect name (default: sqlite)
//	RO_DATABASE_DSN             - Data source name (default: ro.db)
//	RO_DATABASE_MAX_OPEN_CONNS  - Connection pool limit (default: driver default)
//	RO_LOG_LEVEL                - Log level: debug, info, warn, error (default: info)
//	RO_LOG_FORMAT               - Log format: json or console (default: json)
//	RO_METRICS_ENABLED          - Collect Prometheus metrics (default: false)
//	RO_METRICS_NAMESPACE        - Metric namespace (default: ro)
//	RO_MODELS_DIR               - YAML model directory (default: models)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads from path when the file exists and falls back to
// environment variables otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies RO_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvDatabaseDriver); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv(EnvMaxOpenConns); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.MaxOpenConns = n
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv(EnvMetricsEnabled); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv(EnvMetricsNS); v != "" {
		cfg.Metrics.Namespace = v
	}

	if v := os.Getenv(EnvModelsDir); v != "" {
		cfg.Models.Dir = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "ro.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "ro"
	}

	if cfg.Models.Dir == "" {
		cfg.Models.Dir = "models"
	}
}

func validate(cfg *Config) error {
	if cfg.Database.MaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns must not be negative, got %d", cfg.Database.MaxOpenConns)
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level %q is invalid", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !convention.IsValidIdentifier(cfg.Metrics.Namespace) {
		return fmt.Errorf("metrics.namespace %q is not a valid metric name", cfg.Metrics.Namespace)
	}

	return nil
}

// NewLogger builds the process logger writing to w.
func NewLogger(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
