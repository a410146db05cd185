package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/taixiu/internal/domain"
)

func TestClassify(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name string
		seq  string
		want Road
	}{
		{"empty", "", Mixed},
		{"pure alternation", "TXTXTXTXTXTX", Zigzag},
		{"long streak", "TXTXTXXTTTTT", Streaky},
		{"mostly tai", "TTXTTTXTTXTT", TrendingTai},
		{"mostly xiu", "XXTXXXTXXTXX", TrendingXiu},
		{"even blocks", "TTXXTTXXTTXX", Flat},
		{"two to one", "TTXTTXTTXTTX", Mixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Classify(domain.ParseSequence(tt.seq))
			assert.Equal(t, tt.want, got.Road, "seq %s", tt.seq)
		})
	}
}

func TestClassify_OnlyRecentWindow(t *testing.T) {
	d := NewDetector()
	seq := domain.ParseSequence("TTTTTTTTTTTTTTTTTTTT" + "TXTXTXTXTXTX")

	res := d.Classify(seq)
	assert.Equal(t, Zigzag, res.Road)
	assert.Equal(t, 12, res.Samples)
	assert.InDelta(t, 0.5, res.RateTai, 1e-9)
}

func TestObserve_TracksChanges(t *testing.T) {
	d := NewDetector()

	d.Observe(1, domain.ParseSequence("TXTXTXTX"))
	d.Observe(2, domain.ParseSequence("TXTXTXTXT"))
	assert.Equal(t, 0, d.Changes())

	d.Observe(3, domain.ParseSequence("TXTXTTTTTT"))
	assert.Equal(t, 1, d.Changes())
	assert.Equal(t, []RoadChange{{RoundID: 3, From: Zigzag, To: Streaky}}, d.History())
}

func TestRoad_String(t *testing.T) {
	assert.Equal(t, "trending_A", TrendingTai.String())
	assert.Equal(t, "trending_B", TrendingXiu.String())
	assert.Equal(t, "mixed", Road(42).String())
}
