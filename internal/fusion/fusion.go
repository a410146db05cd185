// Package fusion combines the ensemble mixture, the cascade call and an optional
// manual match into the final distribution.
package fusion

import (
	"fmt"
	"math"

	"github.com/sawpanic/taixiu/internal/cascade"
	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/manual"
)

// Weights is one set of source weights. They must sum to 1.
type Weights struct {
	Ensemble float64 `yaml:"ensemble" json:"ensemble"`
	Cascade  float64 `yaml:"cascade" json:"cascade"`
	Manual   float64 `yaml:"manual" json:"manual"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Ensemble + w.Cascade + w.Manual
}

// Config selects the weights with and without a manual match.
type Config struct {
	Base             Weights `yaml:"base"`
	WithManual       Weights `yaml:"with_manual"`
	ManualConfidence float64 `yaml:"manual_confidence"` // mass a manual match puts on its call
}

// DefaultConfig returns the production weights.
func DefaultConfig() Config {
	return Config{
		Base:             Weights{Ensemble: 0.45, Cascade: 0.35, Manual: 0.20},
		WithManual:       Weights{Ensemble: 0.35, Cascade: 0.25, Manual: 0.40},
		ManualConfidence: 0.9,
	}
}

// Validate checks both weight sets.
func (c Config) Validate() error {
	for name, w := range map[string]Weights{"base": c.Base, "with_manual": c.WithManual} {
		if w.Ensemble < 0 || w.Cascade < 0 || w.Manual < 0 {
			return fmt.Errorf("fusion %s weights must be non-negative", name)
		}
		if math.Abs(w.Sum()-1) > 1e-6 {
			return fmt.Errorf("fusion %s weights sum to %.4f, want 1", name, w.Sum())
		}
	}
	if c.ManualConfidence <= 0.5 || c.ManualConfidence > 1 {
		return fmt.Errorf("fusion manual_confidence %.2f outside (0.5, 1]", c.ManualConfidence)
	}
	return nil
}

// Result is the fused answer.
type Result struct {
	Distribution domain.Distribution `json:"distribution"`
	Prediction   domain.Symbol       `json:"prediction"`
	Confidence   float64             `json:"confidence"` // mass on Prediction, 0..1
	Weights      Weights             `json:"weights"`    // weights actually applied, summing to 1
}

// Engine is stateless apart from its configuration.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Fuse blends the three sources. Without a manual match the manual weight is
// dropped and the other two are rescaled to sum to 1; Result.Weights reports the
// rescaled pair.
func (e *Engine) Fuse(ens domain.Distribution, casc cascade.Result, match *manual.Match) Result {
	w := e.cfg.Base
	if match != nil {
		w = e.cfg.WithManual
	} else {
		w = Weights{Ensemble: w.Ensemble, Cascade: w.Cascade}
		if sum := w.Sum(); sum > 0 {
			w.Ensemble /= sum
			w.Cascade /= sum
		}
	}

	cp := domain.Clamp(float64(casc.Score)/100, 0, 1)
	cd := domain.Certain(casc.Prediction, cp)

	raw := domain.Distribution{
		Tai: w.Ensemble*ens.Tai + w.Cascade*cd.Tai,
		Xiu: w.Ensemble*ens.Xiu + w.Cascade*cd.Xiu,
	}
	if match != nil {
		md := domain.Certain(match.Prediction, e.cfg.ManualConfidence)
		raw.Tai += w.Manual * md.Tai
		raw.Xiu += w.Manual * md.Xiu
	}

	dist := raw.Normalize()
	sym, p := dist.Top()
	return Result{Distribution: dist, Prediction: sym, Confidence: p, Weights: w}
}
