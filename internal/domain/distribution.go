package domain

import "math"

// Distribution is a probability mass over {Tai, Xiu}.
type Distribution struct {
	Tai float64 `json:"tai"`
	Xiu float64 `json:"xiu"`
}

// Uniform returns the 0.5/0.5 distribution.
func Uniform() Distribution {
	return Distribution{Tai: 0.5, Xiu: 0.5}
}

// Certain returns a distribution putting p on sym and 1-p on the other side.
func Certain(sym Symbol, p float64) Distribution {
	if sym == Tai {
		return Distribution{Tai: p, Xiu: 1 - p}
	}
	return Distribution{Tai: 1 - p, Xiu: p}
}

// P returns the mass on sym.
func (d Distribution) P(sym Symbol) float64 {
	if sym == Tai {
		return d.Tai
	}
	return d.Xiu
}

// Normalize rescales to sum 1. A zero or invalid total yields Uniform.
func (d Distribution) Normalize() Distribution {
	total := d.Tai + d.Xiu
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return Uniform()
	}
	return Distribution{Tai: d.Tai / total, Xiu: d.Xiu / total}
}

// Top returns the likelier symbol and its mass. Ties go to Tai.
func (d Distribution) Top() (Symbol, float64) {
	if d.Xiu > d.Tai {
		return Xiu, d.Xiu
	}
	return Tai, d.Tai
}

// Entropy returns the Shannon entropy in bits (0..1 for a binary distribution).
func (d Distribution) Entropy() float64 {
	return Entropy([]float64{d.Tai, d.Xiu})
}

// Entropy returns the Shannon entropy of ps in bits, skipping non-positive entries.
func Entropy(ps []float64) float64 {
	h := 0.0
	for _, p := range ps {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
