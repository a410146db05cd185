package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taixiu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2000, cfg.Engine.HistorySize)
	assert.Equal(t, 3, cfg.Engine.Ensemble.MarkovOrder)
	assert.Equal(t, 12, cfg.Engine.Road.Window)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
engine:
  history_size: 500
  ensemble:
    markov_order: 4
http:
  port: 9090
source:
  url: https://feed.example/api/history
  poll_interval: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Engine.HistorySize)
	assert.Equal(t, 4, cfg.Engine.Ensemble.MarkovOrder)
	assert.InDelta(t, 0.08, cfg.Engine.Ensemble.EMAAlpha, 1e-12, "untouched keys keep defaults")
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.Source.PollInterval)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv(EnvHTTPPort, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvHTTPPort, "7000")
	t.Setenv(EnvRedisAddr, "localhost:6379")
	t.Setenv(EnvDatabaseURL, "postgres://u:p@localhost/taixiu?sslmode=disable")
	t.Setenv(EnvSourceURL, "https://feed.example/latest")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(writeConfig(t, "http:\n  port: 9090\n"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "postgres://u:p@localhost/taixiu?sslmode=disable", cfg.Postgres.DSN)
	assert.Equal(t, "https://feed.example/latest", cfg.Source.URL)
	assert.Equal(t, zerolog.WarnLevel, cfg.Level())
}

func TestLoad_BadPortEnv(t *testing.T) {
	t.Setenv(EnvHTTPPort, "eighty")
	_, err := Load("")
	assert.ErrorContains(t, err, EnvHTTPPort)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"history size", func(c *Config) { c.Engine.HistorySize = 0 }, "history_size"},
		{"markov order", func(c *Config) { c.Engine.Ensemble.MarkovOrder = 0 }, "markov_order"},
		{"fusion weights", func(c *Config) { c.Engine.Fusion.Base.Ensemble = 0.9 }, "sum to"},
		{"poll interval", func(c *Config) { c.Source.PollInterval = 200 * time.Millisecond }, "poll_interval"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"port", func(c *Config) { c.HTTP.Port = 0 }, "port"},
		{"circuit", func(c *Config) { c.Source.Circuit.FailureThreshold = 0 }, "failure_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestPredictorConfig_LoadsManualTable(t *testing.T) {
	table := writeConfig(t, `
version: local
patterns:
  - totals: [4, 4]
    prediction: Tài
    note: low pair
`)
	cfg := Default()
	cfg.ManualPatterns = table

	pc, err := cfg.PredictorConfig()
	require.NoError(t, err)
	require.NotNil(t, pc.Manual)
	assert.Equal(t, "local", pc.Manual.Version())

	cfg.ManualPatterns = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.PredictorConfig()
	assert.Error(t, err)
}

func TestLoad_ExampleFile(t *testing.T) {
	for _, key := range []string{EnvHTTPPort, EnvRedisAddr, EnvDatabaseURL, EnvSourceURL, EnvLogLevel} {
		t.Setenv(key, "")
	}
	cfg, err := Load(filepath.Join("..", "..", "configs", "taixiu.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Engine.HistorySize)
	assert.Equal(t, "taixiu:session", cfg.Redis.Key)
	assert.Equal(t, 3*time.Second, cfg.Postgres.QueryTimeout)
	assert.Empty(t, cfg.Source.URL)
}
