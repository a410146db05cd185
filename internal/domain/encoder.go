package domain

// Encode maps a round to its symbol. Missing or unknown results map to Xiu; feeds
// have always been read that way and stored statistics depend on it.
func Encode(r Round) Symbol {
	sym, _ := ParseSymbol(r.Result)
	return sym
}

// EncodeAll maps rounds to a sequence of the same length, preserving order.
func EncodeAll(rounds []Round) Sequence {
	seq := make(Sequence, len(rounds))
	for i, r := range rounds {
		seq[i] = Encode(r)
	}
	return seq
}
