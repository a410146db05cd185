package predictor

import (
	"github.com/sawpanic/taixiu/internal/cascade"
	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/ensemble"
	"github.com/sawpanic/taixiu/internal/fusion"
	"github.com/sawpanic/taixiu/internal/manual"
	"github.com/sawpanic/taixiu/internal/regime"
)

// Config wires the engine components together.
type Config struct {
	HistorySize     int                   `yaml:"history_size"`
	PatternMinLen   int                   `yaml:"pattern_min_len"`
	PatternMaxLen   int                   `yaml:"pattern_max_len"`
	PatternCapacity int                   `yaml:"pattern_capacity"`
	Ensemble        ensemble.Config       `yaml:"ensemble"`
	Cascade         cascade.Config        `yaml:"cascade"`
	Fusion          fusion.Config         `yaml:"fusion"`
	Road            regime.DetectorConfig `yaml:"road"`

	// Manual is the pattern table; nil selects the built-in one.
	Manual *manual.Matcher `yaml:"-"`
}

// DefaultConfig returns the production engine configuration.
func DefaultConfig() Config {
	return Config{
		HistorySize:     domain.DefaultHistoryLimit,
		PatternMinLen:   cascade.DefaultPatternMinLen,
		PatternMaxLen:   cascade.DefaultPatternMaxLen,
		PatternCapacity: cascade.DefaultPatternCapacity,
		Ensemble:        ensemble.DefaultConfig(),
		Cascade:         cascade.DefaultConfig(),
		Fusion:          fusion.DefaultConfig(),
		Road:            regime.DefaultConfig(),
	}
}
