package models

import "github.com/sawpanic/taixiu/internal/domain"

// Pattern types reported by DetectPattern.
const (
	PatternZigzag = "zigzag"
	PatternStreak = "streak"
	PatternTwin   = "twin"
	PatternNone   = "none"
)

var (
	zigzagTails = []string{"TXTXTX", "XTXTXT"}
	twinTails   = []string{"TTXXTTXX", "XXTTXXTT"}
)

// DetectedPattern is the shape found at the tail of a sequence.
type DetectedPattern struct {
	Type     string  `json:"type"`
	Strength float64 `json:"strength"`
}

// PatternModel biases toward reversal on zigzag/twin tails and toward continuation
// on streaks.
type PatternModel struct{}

func NewPattern() *PatternModel { return &PatternModel{} }

func (m *PatternModel) Name() string { return NamePattern }

// DetectPattern checks zigzag, then streak, then twin.
func DetectPattern(seq domain.Sequence) DetectedPattern {
	if hasAnySuffix(seq, zigzagTails) {
		return DetectedPattern{Type: PatternZigzag, Strength: 0.9}
	}
	if _, run := seq.Run(); run >= 4 {
		return DetectedPattern{Type: PatternStreak, Strength: domain.Clamp(float64(run-3)/10, 0.2, 0.9)}
	}
	if hasAnySuffix(seq, twinTails) {
		return DetectedPattern{Type: PatternTwin, Strength: 0.85}
	}
	return DetectedPattern{Type: PatternNone}
}

func (m *PatternModel) Predict(seq domain.Sequence) domain.Distribution {
	last, ok := seq.Last()
	if !ok {
		return domain.Uniform()
	}
	p := DetectPattern(seq)
	switch p.Type {
	case PatternZigzag:
		return blend(last.Opposite(), 0.6, p.Strength)
	case PatternStreak:
		return blend(last, 0.55, p.Strength)
	case PatternTwin:
		return blend(last.Opposite(), 0.62, p.Strength)
	}
	return domain.Uniform()
}

// blend mixes uniform with a fixed hi/(1-hi) split on sym, weighted by strength.
func blend(sym domain.Symbol, hi, strength float64) domain.Distribution {
	split := domain.Certain(sym, hi)
	return domain.Distribution{
		Tai: strength*split.Tai + (1-strength)*0.5,
		Xiu: strength*split.Xiu + (1-strength)*0.5,
	}
}

func hasAnySuffix(seq domain.Sequence, tails []string) bool {
	for _, t := range tails {
		if seq.HasSuffix(t) {
			return true
		}
	}
	return false
}
