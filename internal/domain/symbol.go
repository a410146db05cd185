package domain

import "strings"

// Symbol is the binary outcome of a settled round.
type Symbol uint8

const (
	// Tai is the high side (total 11..18).
	Tai Symbol = iota
	// Xiu is the low side (total 3..10). Unknown outcomes encode to Xiu.
	Xiu
)

// Letters used when sequences are rendered as pattern strings.
const (
	LetterTai = 'T'
	LetterXiu = 'X'
)

func (s Symbol) String() string {
	if s == Tai {
		return "Tài"
	}
	return "Xỉu"
}

// Letter returns the single-letter form used in pattern keys.
func (s Symbol) Letter() byte {
	if s == Tai {
		return LetterTai
	}
	return LetterXiu
}

// Opposite returns the other outcome.
func (s Symbol) Opposite() Symbol {
	if s == Tai {
		return Xiu
	}
	return Tai
}

// MarshalText renders the domain label so maps and records serialise readably.
func (s Symbol) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts any label ParseSymbol understands and falls back to Xiu.
func (s *Symbol) UnmarshalText(b []byte) error {
	sym, _ := ParseSymbol(string(b))
	*s = sym
	return nil
}

// ParseSymbol maps a feed label to a Symbol. The boolean reports whether the label
// was recognised; unrecognised labels still return Xiu.
func ParseSymbol(label string) (Symbol, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "tài", "tai", "t", "a", "big", "over", "high":
		return Tai, true
	case "xỉu", "xiu", "x", "b", "small", "under", "low":
		return Xiu, true
	}
	return Xiu, false
}

// SymbolFromLetter converts a pattern letter back to a Symbol.
func SymbolFromLetter(c byte) Symbol {
	if c == LetterTai {
		return Tai
	}
	return Xiu
}

// FromTotal labels a dice total: 11 and above is Tai.
func FromTotal(total int) Symbol {
	if total >= 11 {
		return Tai
	}
	return Xiu
}
