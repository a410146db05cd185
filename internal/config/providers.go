package config

import (
	"fmt"
	"time"
)

// SourceConfig configures the round feed poller.
type SourceConfig struct {
	URL          string        `yaml:"url"`           // empty disables polling
	PollInterval time.Duration `yaml:"poll_interval"` // Default: 3s
	RPS          float64       `yaml:"rps"`           // Requests per second
	Burst        int           `yaml:"burst"`         // Burst capacity
	Timeout      time.Duration `yaml:"timeout"`       // Per-request timeout
	UserAgent    string        `yaml:"user_agent"`
	Circuit      CircuitConfig `yaml:"circuit"` // Circuit breaker config
}

// CircuitConfig represents circuit breaker configuration
type CircuitConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"` // Consecutive failures to open circuit
	SuccessThreshold int           `yaml:"success_threshold"` // Half-open successes needed to close
	OpenTimeout      time.Duration `yaml:"open_timeout"`      // Time spent open before half-open
}

// DefaultSource returns the poller defaults.
func DefaultSource() SourceConfig {
	return SourceConfig{
		PollInterval: 3 * time.Second,
		RPS:          1,
		Burst:        2,
		Timeout:      5 * time.Second,
		UserAgent:    "taixiu/1.0",
		Circuit: CircuitConfig{
			FailureThreshold: 5,
			SuccessThreshold: 1,
			OpenTimeout:      30 * time.Second,
		},
	}
}

// Validate ensures the source configuration is usable.
func (s *SourceConfig) Validate() error {
	if s.PollInterval < time.Second {
		return fmt.Errorf("poll_interval must be >= 1s, got %s", s.PollInterval)
	}
	if s.RPS <= 0 {
		return fmt.Errorf("rps must be positive, got %f", s.RPS)
	}
	if s.Burst < 1 {
		return fmt.Errorf("burst must be >= 1, got %d", s.Burst)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	if err := s.Circuit.Validate(); err != nil {
		return fmt.Errorf("circuit: %w", err)
	}
	return nil
}

// Validate ensures circuit breaker configuration is valid
func (c *CircuitConfig) Validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failure_threshold must be positive, got %d", c.FailureThreshold)
	}
	if c.SuccessThreshold <= 0 {
		return fmt.Errorf("success_threshold must be positive, got %d", c.SuccessThreshold)
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("open_timeout must be positive, got %s", c.OpenTimeout)
	}
	return nil
}
