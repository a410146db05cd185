package ensemble

import (
	"fmt"
	"math"
)

// WeightBounds defines the valid range for every ensemble weight.
type WeightBounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DefaultBounds keeps every predictor alive and prevents a single one from taking
// the whole mixture.
func DefaultBounds() WeightBounds {
	return WeightBounds{Min: 0.0001, Max: 0.9999}
}

// ValidateWeights checks the sum-to-one constraint and per-weight bounds.
func ValidateWeights(weights map[string]float64, bounds WeightBounds, tolerance float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("no weights provided")
	}
	total := 0.0
	for name, w := range weights {
		if math.IsNaN(w) || w < bounds.Min-tolerance || w > bounds.Max+tolerance {
			return fmt.Errorf("weight %s=%.6f outside bounds [%.4f, %.4f]", name, w, bounds.Min, bounds.Max)
		}
		total += w
	}
	if math.Abs(total-1.0) > tolerance {
		return fmt.Errorf("weights sum to %.6f, must equal 1.000 (±%g)", total, tolerance)
	}
	return nil
}

// Project clamps weights into bounds and renormalises to sum 1. Weights that cross
// a bound are pinned there (upper bounds first) and the remaining mass is spread
// over the free ones, so the result satisfies both constraints at once.
func Project(weights []float64, bounds WeightBounds) []float64 {
	out := make([]float64, len(weights))
	copy(out, weights)
	pinned := make([]bool, len(out))

	for pass := 0; pass <= len(out); pass++ {
		fixedMass, freeMass := 0.0, 0.0
		for i, w := range out {
			if pinned[i] {
				fixedMass += w
			} else {
				freeMass += w
			}
		}
		if freeMass <= 0 {
			break
		}
		scale := (1 - fixedMass) / freeMass

		if pinWhere(out, pinned, scale, func(w float64) bool { return w > bounds.Max }, bounds.Max) {
			continue
		}
		if pinWhere(out, pinned, scale, func(w float64) bool { return w < bounds.Min }, bounds.Min) {
			continue
		}
		for i := range out {
			if !pinned[i] {
				out[i] *= scale
			}
		}
		break
	}
	return out
}

// pinWhere pins every free weight whose scaled value violates the bound.
func pinWhere(out []float64, pinned []bool, scale float64, violates func(float64) bool, bound float64) bool {
	changed := false
	for i := range out {
		if !pinned[i] && violates(out[i]*scale) {
			out[i], pinned[i], changed = bound, true, true
		}
	}
	return changed
}
