package domain

import "strings"

// Sequence is an ordered run of symbols derived from History.
type Sequence []Symbol

// String renders the sequence as T/X letters.
func (s Sequence) String() string {
	var b strings.Builder
	b.Grow(len(s))
	for _, sym := range s {
		b.WriteByte(sym.Letter())
	}
	return b.String()
}

// ParseSequence builds a sequence from T/X letters; any other byte reads as Xiu.
func ParseSequence(letters string) Sequence {
	seq := make(Sequence, len(letters))
	for i := 0; i < len(letters); i++ {
		seq[i] = SymbolFromLetter(letters[i])
	}
	return seq
}

// Last returns the final symbol.
func (s Sequence) Last() (Symbol, bool) {
	if len(s) == 0 {
		return Xiu, false
	}
	return s[len(s)-1], true
}

// Tail returns at most the last n symbols.
func (s Sequence) Tail(n int) Sequence {
	if n >= len(s) {
		return s
	}
	if n <= 0 {
		return s[:0]
	}
	return s[len(s)-n:]
}

// Run returns the symbol and length of the trailing streak.
func (s Sequence) Run() (Symbol, int) {
	if len(s) == 0 {
		return Xiu, 0
	}
	last := s[len(s)-1]
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == last; i-- {
		n++
	}
	return last, n
}

// Count returns how many times sym occurs.
func (s Sequence) Count(sym Symbol) int {
	n := 0
	for _, v := range s {
		if v == sym {
			n++
		}
	}
	return n
}

// HasSuffix reports whether the sequence ends with the given T/X letters.
func (s Sequence) HasSuffix(letters string) bool {
	if len(letters) > len(s) {
		return false
	}
	off := len(s) - len(letters)
	for i := 0; i < len(letters); i++ {
		if s[off+i].Letter() != letters[i] {
			return false
		}
	}
	return true
}

// Frequency returns the raw symbol frequency; an empty sequence is uniform.
func (s Sequence) Frequency() Distribution {
	if len(s) == 0 {
		return Uniform()
	}
	tai := float64(s.Count(Tai))
	return Distribution{Tai: tai / float64(len(s)), Xiu: 1 - tai/float64(len(s))}
}

// Clone returns an independent copy.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}
