package models

import (
	"math"

	"github.com/sawpanic/taixiu/internal/domain"
)

// Default decay windows for the run-length model.
const (
	DefaultRunWindowShort = 6.0
	DefaultRunWindowLong  = 20.0
)

// RunLength encodes the prior that long streaks become increasingly likely to break.
type RunLength struct {
	short float64
	long  float64
}

// NewRunLength returns a model with the given decay windows.
func NewRunLength(short, long float64) *RunLength {
	if short <= 0 {
		short = DefaultRunWindowShort
	}
	if long <= 0 {
		long = DefaultRunWindowLong
	}
	return &RunLength{short: short, long: long}
}

func (m *RunLength) Name() string { return NameRunLength }

// Continuation returns the probability that a streak of the given length continues.
func (m *RunLength) Continuation(run int) float64 {
	r := float64(run)
	p := 0.6*math.Exp(-r/m.short) + 0.3*math.Exp(-r/m.long)
	return domain.Clamp(p, 0.05, 0.95)
}

func (m *RunLength) Predict(seq domain.Sequence) domain.Distribution {
	sym, run := seq.Run()
	if run == 0 {
		return domain.Uniform()
	}
	return domain.Certain(sym, m.Continuation(run))
}
