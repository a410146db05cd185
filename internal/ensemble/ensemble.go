// Package ensemble blends the weak predictors and adapts their weights online.
package ensemble

import (
	"fmt"
	"math"

	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/predict/models"
)

// Config holds the ensemble tuning knobs.
type Config struct {
	MarkovOrder    int          `yaml:"markov_order"`
	RunWindowShort float64      `yaml:"run_window_short"`
	RunWindowLong  float64      `yaml:"run_window_long"`
	EMAAlpha       float64      `yaml:"ema_alpha"`    // smoothing for PerformanceEMA
	WeightDrift    float64      `yaml:"weight_drift"` // share of the way weights move toward target per round
	Bounds         WeightBounds `yaml:"bounds"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		MarkovOrder:    models.DefaultMarkovOrder,
		RunWindowShort: models.DefaultRunWindowShort,
		RunWindowLong:  models.DefaultRunWindowLong,
		EMAAlpha:       0.08,
		WeightDrift:    0.05,
		Bounds:         DefaultBounds(),
	}
}

const (
	scoreFloor = 0.001
	scoreCeil  = 0.999
	initialEMA = 0.5
)

// Mix is the blended output plus per-model diagnostics.
type Mix struct {
	Distribution domain.Distribution            `json:"distribution"`
	Outputs      map[string]domain.Distribution `json:"outputs"`
	Weights      map[string]float64             `json:"weights"`
}

// State is the learnable part of the ensemble, used for snapshots.
type State struct {
	Weights     map[string]float64 `json:"weights"`
	Performance map[string]float64 `json:"performance"`
}

// Ensemble owns the fixed predictor set with its weights and performance EMAs.
// It is not safe for concurrent use.
type Ensemble struct {
	cfg     Config
	markov  *models.Markov
	models  []models.Model
	weights []float64
	perf    []float64
}

// New builds the ensemble {markov, run_length, momentum, pattern} with equal weights.
func New(cfg Config) *Ensemble {
	markov := models.NewMarkov(cfg.MarkovOrder)
	set := []models.Model{
		markov,
		models.NewRunLength(cfg.RunWindowShort, cfg.RunWindowLong),
		models.NewMomentum(),
		models.NewPattern(),
	}
	e := &Ensemble{
		cfg:     cfg,
		markov:  markov,
		models:  set,
		weights: make([]float64, len(set)),
		perf:    make([]float64, len(set)),
	}
	for i := range set {
		e.weights[i] = 1 / float64(len(set))
		e.perf[i] = initialEMA
	}
	return e
}

// Names returns the predictor names in evaluation order.
func (e *Ensemble) Names() []string {
	names := make([]string, len(e.models))
	for i, m := range e.models {
		names[i] = m.Name()
	}
	return names
}

// TrainAll retrains the stateful components. Only the Markov table has state.
func (e *Ensemble) TrainAll(seq domain.Sequence) {
	e.markov.Train(seq)
}

// PredictMix runs every predictor and returns their weighted, normalised blend.
func (e *Ensemble) PredictMix(seq domain.Sequence) Mix {
	mix := Mix{
		Outputs: make(map[string]domain.Distribution, len(e.models)),
		Weights: make(map[string]float64, len(e.models)),
	}
	var blended domain.Distribution
	for i, m := range e.models {
		out := m.Predict(seq)
		blended.Tai += e.weights[i] * out.Tai
		blended.Xiu += e.weights[i] * out.Xiu
		mix.Outputs[m.Name()] = out
		mix.Weights[m.Name()] = e.weights[i]
	}
	mix.Distribution = blended.Normalize()
	return mix
}

// UpdateWeights scores each predictor on the outcome that followed seq, folds the
// score into its EMA and drifts the live weights toward a target proportional to
// ema³.
func (e *Ensemble) UpdateWeights(seq domain.Sequence, actual domain.Symbol) {
	alpha := e.cfg.EMAAlpha
	for i, m := range e.models {
		score := domain.Clamp(m.Predict(seq).P(actual), scoreFloor, scoreCeil)
		e.perf[i] = e.perf[i]*(1-alpha) + alpha*score
	}

	cubes := make([]float64, len(e.perf))
	total := 0.0
	for i, p := range e.perf {
		cubes[i] = math.Pow(p, 3)
		total += cubes[i]
	}

	drift := e.cfg.WeightDrift
	next := make([]float64, len(e.weights))
	for i := range e.weights {
		target := 1 / float64(len(e.weights))
		if total > 0 {
			target = cubes[i] / total
		}
		next[i] = domain.Clamp(e.weights[i]*(1-drift)+target*drift, e.cfg.Bounds.Min, e.cfg.Bounds.Max)
	}
	e.weights = Project(next, e.cfg.Bounds)
}

// Concentration is 1 minus the normalised Shannon entropy of the weights: 0 for
// equal weights, approaching 1 as one predictor dominates.
func (e *Ensemble) Concentration() float64 {
	if len(e.weights) < 2 {
		return 1
	}
	return domain.Clamp(1-domain.Entropy(e.weights)/math.Log2(float64(len(e.weights))), 0, 1)
}

// Weights returns a copy of the live weights keyed by predictor name.
func (e *Ensemble) Weights() map[string]float64 {
	return e.keyed(e.weights)
}

// State exports weights and EMAs.
func (e *Ensemble) State() State {
	return State{Weights: e.keyed(e.weights), Performance: e.keyed(e.perf)}
}

// SetState restores weights and EMAs exported by State.
func (e *Ensemble) SetState(s State) error {
	if err := ValidateWeights(s.Weights, e.cfg.Bounds, 1e-6); err != nil {
		return fmt.Errorf("invalid ensemble weights: %w", err)
	}
	weights := make([]float64, len(e.models))
	perf := make([]float64, len(e.models))
	for i, m := range e.models {
		w, ok := s.Weights[m.Name()]
		if !ok {
			return fmt.Errorf("missing weight for model %s", m.Name())
		}
		weights[i] = w
		perf[i] = initialEMA
		if p, ok := s.Performance[m.Name()]; ok && p > 0 && p < 1 {
			perf[i] = p
		}
	}
	e.weights = weights
	e.perf = perf
	return nil
}

func (e *Ensemble) keyed(values []float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for i, m := range e.models {
		out[m.Name()] = values[i]
	}
	return out
}
