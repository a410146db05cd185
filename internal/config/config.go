// Package config loads the YAML configuration and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/taixiu/internal/application/predictor"
	"github.com/sawpanic/taixiu/internal/manual"
)

// Environment overrides applied after the file is read.
const (
	EnvHTTPPort    = "TAIXIU_HTTP_PORT"
	EnvRedisAddr   = "REDIS_ADDR"
	EnvDatabaseURL = "DATABASE_URL"
	EnvSourceURL   = "TAIXIU_SOURCE_URL"
	EnvLogLevel    = "TAIXIU_LOG_LEVEL"
)

// Config is the complete process configuration.
type Config struct {
	LogLevel       string           `yaml:"log_level"`
	Engine         predictor.Config `yaml:"engine"`
	ManualPatterns string           `yaml:"manual_patterns"` // optional YAML table replacing the built-in one
	HTTP           HTTPConfig       `yaml:"http"`
	Source         SourceConfig     `yaml:"source"`
	Redis          RedisConfig      `yaml:"redis"`
	Postgres       PostgresConfig   `yaml:"postgres"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	HandlerTTL   time.Duration `yaml:"handler_timeout"`
}

// RedisConfig configures the snapshot store. An empty Addr selects the in-memory store.
type RedisConfig struct {
	Addr string        `yaml:"addr"`
	DB   int           `yaml:"db"`
	Key  string        `yaml:"key"` // snapshot key
	TTL  time.Duration `yaml:"ttl"` // 0 keeps snapshots forever
}

// PostgresConfig configures the prediction ledger. An empty DSN disables it.
type PostgresConfig struct {
	DSN          string        `yaml:"dsn"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	MaxOpenConns int           `yaml:"max_open_conns"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Engine:   predictor.DefaultConfig(),
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			HandlerTTL:   5 * time.Second,
		},
		Source: DefaultSource(),
		Redis: RedisConfig{
			Key: "taixiu:session",
		},
		Postgres: PostgresConfig{
			QueryTimeout: 5 * time.Second,
			MaxOpenConns: 5,
		},
	}
}

// Load reads path on top of Default and applies environment overrides. An empty
// path loads defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHTTPPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHTTPPort, err)
		}
		c.HTTP.Port = port
	}
	if v, ok := lookup(EnvRedisAddr); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup(EnvDatabaseURL); ok {
		c.Postgres.DSN = v
	}
	if v, ok := lookup(EnvSourceURL); ok {
		c.Source.URL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	if c.Engine.HistorySize <= 0 {
		return fmt.Errorf("engine history_size must be positive, got %d", c.Engine.HistorySize)
	}
	if c.Engine.Ensemble.MarkovOrder < 1 {
		return fmt.Errorf("engine markov_order must be >= 1, got %d", c.Engine.Ensemble.MarkovOrder)
	}
	if a := c.Engine.Ensemble.EMAAlpha; a <= 0 || a >= 1 {
		return fmt.Errorf("engine ema_alpha must be in (0,1), got %f", a)
	}
	if d := c.Engine.Ensemble.WeightDrift; d <= 0 || d > 1 {
		return fmt.Errorf("engine weight_drift must be in (0,1], got %f", d)
	}
	if err := c.Engine.Fusion.Validate(); err != nil {
		return err
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port must be 1-65535, got %d", c.HTTP.Port)
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// PredictorConfig returns the engine configuration with the manual table resolved.
func (c *Config) PredictorConfig() (predictor.Config, error) {
	out := c.Engine
	if c.ManualPatterns != "" {
		m, err := manual.LoadFile(c.ManualPatterns)
		if err != nil {
			return predictor.Config{}, err
		}
		out.Manual = m
	}
	return out, nil
}
