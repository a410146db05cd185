// Package regime classifies the recent shape of the outcome stream (the "road").
package regime

import (
	"math"

	"github.com/sawpanic/taixiu/internal/domain"
)

// Road is the classified shape of the recent sequence.
type Road int

const (
	Mixed Road = iota
	Zigzag
	Streaky
	Flat
	TrendingTai
	TrendingXiu
)

func (r Road) String() string {
	switch r {
	case Zigzag:
		return "zigzag"
	case Streaky:
		return "streaky"
	case Flat:
		return "flat"
	case TrendingTai:
		return "trending_A"
	case TrendingXiu:
		return "trending_B"
	default:
		return "mixed"
	}
}

func (r Road) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// DetectorConfig holds the classification thresholds.
type DetectorConfig struct {
	Window      int     `yaml:"window"`       // Default: 12 rounds
	ZigzagRatio float64 `yaml:"zigzag_ratio"` // Default: 0.80 share of adjacent changes
	StreakRun   int     `yaml:"streak_run"`   // Default: 4
	TrendHigh   float64 `yaml:"trend_high"`   // Default: 0.67 Tai rate
	TrendLow    float64 `yaml:"trend_low"`    // Default: 0.33 Tai rate
	FlatBand    float64 `yaml:"flat_band"`    // Default: 0.09 around 0.5
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() DetectorConfig {
	return DetectorConfig{
		Window:      12,
		ZigzagRatio: 0.80,
		StreakRun:   4,
		TrendHigh:   0.67,
		TrendLow:    0.33,
		FlatBand:    0.09,
	}
}

// DetectionResult contains the classification and the signals behind it.
type DetectionResult struct {
	Road       Road    `json:"road"`
	RateTai    float64 `json:"rate_tai"`    // share of Tai in the window
	ChangeRate float64 `json:"change_rate"` // share of adjacent pairs that differ
	Run        int     `json:"run"`         // current run length
	Samples    int     `json:"samples"`
}

// RoadChange records a transition between two classifications.
type RoadChange struct {
	RoundID int64 `json:"round_id"`
	From    Road  `json:"from"`
	To      Road  `json:"to"`
}

// Detector classifies sequences and tracks how often the road changes.
// It is not safe for concurrent use.
type Detector struct {
	config        DetectorConfig
	last          *DetectionResult
	changeHistory []RoadChange
}

// NewDetector creates a detector with the default configuration.
func NewDetector() *Detector {
	return NewDetectorWithConfig(DefaultConfig())
}

// NewDetectorWithConfig creates a detector with custom thresholds.
func NewDetectorWithConfig(config DetectorConfig) *Detector {
	if config.Window < 2 {
		config.Window = DefaultConfig().Window
	}
	return &Detector{config: config}
}

// Classify is pure: it does not touch the change history.
func (d *Detector) Classify(seq domain.Sequence) DetectionResult {
	window := seq.Tail(d.config.Window)
	res := DetectionResult{Road: Mixed, Samples: len(window)}
	if len(window) == 0 {
		return res
	}

	res.RateTai = float64(window.Count(domain.Tai)) / float64(len(window))
	_, res.Run = seq.Run()
	if len(window) > 1 {
		changes := 0
		for i := 1; i < len(window); i++ {
			if window[i] != window[i-1] {
				changes++
			}
		}
		res.ChangeRate = float64(changes) / float64(len(window)-1)
	}

	switch {
	case len(window) > 1 && res.ChangeRate >= d.config.ZigzagRatio:
		res.Road = Zigzag
	case res.Run >= d.config.StreakRun:
		res.Road = Streaky
	case res.RateTai >= d.config.TrendHigh:
		res.Road = TrendingTai
	case res.RateTai <= d.config.TrendLow:
		res.Road = TrendingXiu
	case math.Abs(res.RateTai-0.5) <= d.config.FlatBand:
		res.Road = Flat
	}
	return res
}

// Observe classifies seq after round roundID settled and records a change when the
// road differs from the previous observation.
func (d *Detector) Observe(roundID int64, seq domain.Sequence) DetectionResult {
	res := d.Classify(seq)
	if d.last != nil && d.last.Road != res.Road {
		d.changeHistory = append(d.changeHistory, RoadChange{RoundID: roundID, From: d.last.Road, To: res.Road})
	}
	d.last = &res
	return res
}

// Changes returns the number of recorded road changes.
func (d *Detector) Changes() int {
	return len(d.changeHistory)
}

// History returns a copy of the recorded road changes.
func (d *Detector) History() []RoadChange {
	return append([]RoadChange(nil), d.changeHistory...)
}
