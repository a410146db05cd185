package domain

// DefaultHistoryLimit bounds History when no limit is configured.
const DefaultHistoryLimit = 2000

// History is the append-only, bounded record of settled rounds. The oldest rounds
// are evicted first once the limit is reached. History is not safe for concurrent
// use; the owning service serialises access.
type History struct {
	limit  int
	rounds []Round
	seq    Sequence // derived cache, nil when stale
}

// NewHistory returns an empty history holding at most limit rounds.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit, rounds: make([]Round, 0, limit)}
}

// Limit returns the configured capacity.
func (h *History) Limit() int { return h.limit }

// Len returns the number of stored rounds.
func (h *History) Len() int { return len(h.rounds) }

// Append records a round, evicting the oldest when over capacity.
func (h *History) Append(r Round) {
	h.rounds = append(h.rounds, r.Normalize())
	if over := len(h.rounds) - h.limit; over > 0 {
		kept := make([]Round, len(h.rounds)-over, h.limit)
		copy(kept, h.rounds[over:])
		h.rounds = kept
	}
	h.seq = nil
}

// Last returns the most recent round.
func (h *History) Last() (Round, bool) {
	if len(h.rounds) == 0 {
		return Round{}, false
	}
	return h.rounds[len(h.rounds)-1], true
}

// Rounds returns a copy of the stored rounds, oldest first.
func (h *History) Rounds() []Round {
	out := make([]Round, len(h.rounds))
	copy(out, h.rounds)
	return out
}

// Recent returns a copy of at most the last n rounds.
func (h *History) Recent(n int) []Round {
	if n > len(h.rounds) || n <= 0 {
		n = len(h.rounds)
	}
	out := make([]Round, n)
	copy(out, h.rounds[len(h.rounds)-n:])
	return out
}

// Totals returns the totals of at most the last n rounds, oldest first.
func (h *History) Totals(n int) []int {
	recent := h.Recent(n)
	out := make([]int, len(recent))
	for i, r := range recent {
		out[i] = r.Total
	}
	return out
}

// Sequence returns the encoded symbol sequence. The result is a copy; the cache
// is rebuilt only after the history changes.
func (h *History) Sequence() Sequence {
	if h.seq == nil {
		h.seq = EncodeAll(h.rounds)
	}
	return h.seq.Clone()
}
