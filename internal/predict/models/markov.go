package models

import (
	"strings"

	"github.com/sawpanic/taixiu/internal/domain"
)

// DefaultMarkovOrder is the context length used when none is configured.
const DefaultMarkovOrder = 3

// Markov is a fixed-order context model. Shorter contexts are answered from the
// same table by summing every window that ends with the shorter context.
type Markov struct {
	order int
	table map[string][2]int // context letters -> follower counts {Tai, Xiu}
}

// NewMarkov returns an untrained model of the given order.
func NewMarkov(order int) *Markov {
	if order < 1 {
		order = DefaultMarkovOrder
	}
	return &Markov{order: order, table: make(map[string][2]int)}
}

func (m *Markov) Name() string { return NameMarkov }

// Order returns the context length.
func (m *Markov) Order() int { return m.order }

// Contexts returns the number of distinct windows in the table.
func (m *Markov) Contexts() int { return len(m.table) }

// Train rebuilds the table from scratch by sliding a window across seq.
func (m *Markov) Train(seq domain.Sequence) {
	table := make(map[string][2]int)
	letters := seq.String()
	for i := m.order; i < len(letters); i++ {
		key := letters[i-m.order : i]
		counts := table[key]
		counts[seq[i]]++
		table[key] = counts
	}
	m.table = table
}

// Predict looks up the trailing context, stepping down one order at a time until a
// context with observations is found. Order 0 is the raw frequency of seq.
func (m *Markov) Predict(seq domain.Sequence) domain.Distribution {
	if len(seq) < m.order {
		return seq.Frequency()
	}
	for ctx := m.order; ctx >= 1; ctx-- {
		counts := m.lookup(seq.Tail(ctx).String())
		total := counts[domain.Tai] + counts[domain.Xiu]
		if total == 0 {
			continue
		}
		return domain.Distribution{
			Tai: float64(counts[domain.Tai]) / float64(total),
			Xiu: float64(counts[domain.Xiu]) / float64(total),
		}
	}
	return seq.Frequency()
}

func (m *Markov) lookup(context string) [2]int {
	if len(context) == m.order {
		return m.table[context]
	}
	var sum [2]int
	for key, counts := range m.table {
		if strings.HasSuffix(key, context) {
			sum[domain.Tai] += counts[domain.Tai]
			sum[domain.Xiu] += counts[domain.Xiu]
		}
	}
	return sum
}
