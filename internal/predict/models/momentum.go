package models

import "github.com/sawpanic/taixiu/internal/domain"

const (
	momentumShortWindow = 5
	momentumMidWindow   = 15
)

// Momentum leans toward whichever side has dominated the recent windows.
type Momentum struct{}

func NewMomentum() *Momentum { return &Momentum{} }

func (m *Momentum) Name() string { return NameMomentum }

// Score returns the blended signed imbalance in [-1, 1]; positive favours Tai.
func (m *Momentum) Score(seq domain.Sequence) float64 {
	return 0.7*imbalance(seq.Tail(momentumShortWindow)) + 0.3*imbalance(seq.Tail(momentumMidWindow))
}

func (m *Momentum) Predict(seq domain.Sequence) domain.Distribution {
	shift := domain.Clamp(0.4*m.Score(seq), -0.4, 0.4)
	pTai := domain.Clamp(0.5+shift, 0.02, 0.98)
	return domain.Distribution{Tai: pTai, Xiu: 1 - pTai}
}

// imbalance is (countTai - countXiu) / len(window); empty windows score zero.
func imbalance(window domain.Sequence) float64 {
	if len(window) == 0 {
		return 0
	}
	tai := window.Count(domain.Tai)
	return float64(tai-(len(window)-tai)) / float64(len(window))
}
