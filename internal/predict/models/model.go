// Package models holds the weak predictors blended by the ensemble. Each one turns
// a symbol sequence into a distribution over the next outcome.
package models

import "github.com/sawpanic/taixiu/internal/domain"

// Names of the fixed predictor set.
const (
	NameMarkov    = "markov"
	NameRunLength = "run_length"
	NameMomentum  = "momentum"
	NamePattern   = "pattern"
)

// Model estimates the distribution of the symbol that follows seq.
type Model interface {
	Name() string
	Predict(seq domain.Sequence) domain.Distribution
}

// Trainable models rebuild internal state from a full sequence.
type Trainable interface {
	Model
	Train(seq domain.Sequence)
}
