package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_UnknownResultDefaultsToXiu(t *testing.T) {
	tests := []struct {
		result string
		want   Symbol
	}{
		{"Tài", Tai},
		{"tai", Tai},
		{"T", Tai},
		{"Xỉu", Xiu},
		{"xiu", Xiu},
		{"", Xiu},
		{"pending", Xiu},
	}

	for _, tt := range tests {
		t.Run(tt.result, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(Round{Result: tt.result}))
		})
	}
}

func TestEncodeAll_PreservesOrder(t *testing.T) {
	rounds := []Round{{Result: "Tài"}, {Result: "Xỉu"}, {Result: "Tài"}, {}}
	assert.Equal(t, "TXTX", EncodeAll(rounds).String())
}

func TestHistory_EvictsOldestFirst(t *testing.T) {
	h := NewHistory(3)
	for i := int64(1); i <= 5; i++ {
		h.Append(Round{ID: i, Result: "Tài"})
	}

	require.Equal(t, 3, h.Len())
	rounds := h.Rounds()
	assert.Equal(t, int64(3), rounds[0].ID)
	assert.Equal(t, int64(5), rounds[2].ID)
}

func TestHistory_SequenceCacheInvalidatedOnAppend(t *testing.T) {
	h := NewHistory(10)
	h.Append(Round{ID: 1, Result: "Tài"})
	assert.Equal(t, "T", h.Sequence().String())

	h.Append(Round{ID: 2, Result: "Xỉu"})
	assert.Equal(t, "TX", h.Sequence().String())

	// Mutating the returned copy must not leak into the cache.
	seq := h.Sequence()
	seq[0] = Xiu
	assert.Equal(t, "TX", h.Sequence().String())
}

func TestHistory_TotalsFilledFromDice(t *testing.T) {
	h := NewHistory(10)
	h.Append(Round{ID: 1, Dice: []int{6, 5, 6}, Result: "Tài"})
	h.Append(Round{ID: 2, Total: 9, Result: "Xỉu"})

	assert.Equal(t, []int{17, 9}, h.Totals(6))
	assert.Equal(t, []int{9}, h.Totals(1))
}

func TestSequence_Run(t *testing.T) {
	sym, n := ParseSequence("TXXTTT").Run()
	assert.Equal(t, Tai, sym)
	assert.Equal(t, 3, n)

	_, n = Sequence{}.Run()
	assert.Equal(t, 0, n)
}

func TestSequence_HasSuffix(t *testing.T) {
	seq := ParseSequence("TTXXTX")
	assert.True(t, seq.HasSuffix("XTX"))
	assert.False(t, seq.HasSuffix("TTX"))
	assert.False(t, seq.HasSuffix("TTTXXTX"))
}

func TestDistribution_NormalizeGuardsZeroTotal(t *testing.T) {
	assert.Equal(t, Uniform(), Distribution{}.Normalize())

	d := Distribution{Tai: 3, Xiu: 1}.Normalize()
	assert.InDelta(t, 0.75, d.Tai, 1e-9)
	assert.InDelta(t, 1.0, d.Tai+d.Xiu, 1e-9)
}

func TestDistribution_Entropy(t *testing.T) {
	assert.InDelta(t, 1.0, Uniform().Entropy(), 1e-9)
	assert.InDelta(t, 0.0, Certain(Tai, 1).Entropy(), 1e-9)
}

func TestRound_Triple(t *testing.T) {
	v, ok := Round{Dice: []int{4, 4, 4}}.Triple()
	assert.True(t, ok)
	assert.Equal(t, 4, v)

	_, ok = Round{Dice: []int{4, 4, 5}}.Triple()
	assert.False(t, ok)

	_, ok = Round{}.Triple()
	assert.False(t, ok)
}

func TestFromTotal(t *testing.T) {
	assert.Equal(t, Xiu, FromTotal(3))
	assert.Equal(t, Xiu, FromTotal(10))
	assert.Equal(t, Tai, FromTotal(11))
	assert.Equal(t, Tai, FromTotal(18))
}
