// Package config loads the application's YAML-backed configuration,
// trimmed from the teacher's much larger Config to only the sections this
// engine actually has: the HTTP/WS host, auth/session, matching/event bus
// tuning, logging, and metrics.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Matching MatchingConfig `yaml:"matching"`
	Bus      BusConfig      `yaml:"bus"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig controls the HTTP/WS host around the request facade.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimitRPS    int           `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
}

// AuthConfig controls session token signing and lifetime.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// MatchingConfig controls matching-engine-adjacent tuning knobs that
// survive from the teacher's much larger MatchingConfig: everything about
// multiple engine types/pools was dropped since this engine is a single,
// single-threaded instance (see DESIGN.md).
type MatchingConfig struct {
	EnableMetrics bool `yaml:"enable_metrics"`
}

// BusConfig controls the event bus's queue depth and worker pool.
type BusConfig struct {
	QueueSize int `yaml:"queue_size"`
	Workers   int `yaml:"workers"`
	TestMode  bool `yaml:"test_mode"`
}

// LoggingConfig controls the zap logger and the gzip JSON-lines event audit
// log.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"` // "json" or "console"
	EventLogPath  string `yaml:"event_log_path"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Port    int    `yaml:"port"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-change-me",
			TokenTTL:  24 * time.Hour,
		},
		Matching: MatchingConfig{
			EnableMetrics: true,
		},
		Bus: BusConfig{
			QueueSize: 4096,
			Workers:   1,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "json",
			EventLogPath: "events.jsonl.gz",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
	}
}

// Load reads path as YAML and overlays it on Default(). A missing path
// silently falls back to defaults, matching the teacher's LoadConfig.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate enforces the invariants the rest of the system assumes hold.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Bus.QueueSize <= 0 {
		return fmt.Errorf("bus.queue_size must be positive")
	}
	if c.Bus.Workers <= 0 {
		return fmt.Errorf("bus.workers must be positive")
	}
	return nil
}
