package ensemble

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/predict/models"
)

func sumWeights(w map[string]float64) float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

func TestNew_EqualWeights(t *testing.T) {
	e := New(DefaultConfig())
	weights := e.Weights()

	require.Len(t, weights, 4)
	for _, name := range []string{models.NameMarkov, models.NameRunLength, models.NameMomentum, models.NamePattern} {
		assert.InDelta(t, 0.25, weights[name], 1e-12, name)
	}
	assert.InDelta(t, 0.0, e.Concentration(), 1e-9)
}

func TestPredictMix_IsNormalised(t *testing.T) {
	e := New(DefaultConfig())
	seq := domain.ParseSequence("TTXTXXTTTXTXXXTTXT")
	e.TrainAll(seq)

	mix := e.PredictMix(seq)
	assert.InDelta(t, 1.0, mix.Distribution.Tai+mix.Distribution.Xiu, 1e-6)
	assert.GreaterOrEqual(t, mix.Distribution.Tai, 0.0)
	assert.LessOrEqual(t, mix.Distribution.Tai, 1.0)
	assert.Len(t, mix.Outputs, 4)
	assert.InDelta(t, 1.0, sumWeights(mix.Weights), 1e-9)
}

func TestPredictMix_Deterministic(t *testing.T) {
	e := New(DefaultConfig())
	seq := domain.ParseSequence("TXXTTXTXTTTX")
	e.TrainAll(seq)

	assert.Equal(t, e.PredictMix(seq), e.PredictMix(seq))
}

func TestUpdateWeights_InvariantsHoldOverManyRounds(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	rng := rand.New(rand.NewSource(42))

	var seq domain.Sequence
	for i := 0; i < 3000; i++ {
		actual := domain.Symbol(rng.Intn(2))
		e.UpdateWeights(seq, actual)
		seq = append(seq, actual)
		e.TrainAll(seq)

		w := e.Weights()
		require.InDelta(t, 1.0, sumWeights(w), 1e-6, "round %d", i)
		for name, v := range w {
			require.GreaterOrEqual(t, v, cfg.Bounds.Min-1e-12, name)
			require.LessOrEqual(t, v, cfg.Bounds.Max+1e-12, name)
		}
	}
}

func TestUpdateWeights_RewardsAccuratePredictor(t *testing.T) {
	e := New(DefaultConfig())

	// Strict alternation: Markov learns it exactly, the pattern model leans the
	// right way, run length and momentum lean the wrong way.
	seq := domain.ParseSequence("TXTXTX")
	for i := 0; i < 200; i++ {
		last, _ := seq.Last()
		next := last.Opposite()
		e.UpdateWeights(seq, next)
		seq = append(seq, next)
		e.TrainAll(seq)
	}

	w := e.Weights()
	assert.Greater(t, w[models.NameMarkov], 0.25)
	assert.Greater(t, w[models.NameMarkov], w[models.NamePattern])
	assert.Greater(t, w[models.NamePattern], w[models.NameMomentum])
	assert.Greater(t, w[models.NameMomentum], w[models.NameRunLength])
	assert.Greater(t, e.Concentration(), 0.0)
}

func TestUpdateWeights_SingleRoundMovesSlowly(t *testing.T) {
	e := New(DefaultConfig())
	e.UpdateWeights(domain.ParseSequence("TTTTTT"), domain.Xiu)

	for name, w := range e.Weights() {
		assert.InDelta(t, 0.25, w, 0.01, name)
	}
}

func TestStateRoundTrip(t *testing.T) {
	e := New(DefaultConfig())
	seq := domain.ParseSequence("TXXTXTTX")
	e.UpdateWeights(seq, domain.Tai)
	e.UpdateWeights(append(seq, domain.Tai), domain.Xiu)

	restored := New(DefaultConfig())
	require.NoError(t, restored.SetState(e.State()))
	assert.Equal(t, e.State(), restored.State())
}

func TestSetState_RejectsInvalidWeights(t *testing.T) {
	e := New(DefaultConfig())
	err := e.SetState(State{Weights: map[string]float64{
		models.NameMarkov:    0.5,
		models.NameRunLength: 0.5,
		models.NameMomentum:  0.5,
		models.NamePattern:   0.5,
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to")
}

func TestProject(t *testing.T) {
	bounds := WeightBounds{Min: 0.1, Max: 0.6}

	tests := []struct {
		name string
		in   []float64
	}{
		{"already valid", []float64{0.25, 0.25, 0.25, 0.25}},
		{"one dominant", []float64{0.97, 0.01, 0.01, 0.01}},
		{"unnormalised", []float64{2, 1, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Project(tt.in, bounds)
			total := 0.0
			for _, w := range out {
				assert.GreaterOrEqual(t, w, bounds.Min-1e-12)
				assert.LessOrEqual(t, w, bounds.Max+1e-12)
				total += w
			}
			assert.InDelta(t, 1.0, total, 1e-9)
		})
	}
}

func TestValidateWeights(t *testing.T) {
	bounds := DefaultBounds()
	require.NoError(t, ValidateWeights(map[string]float64{"a": 0.4, "b": 0.6}, bounds, 1e-6))

	err := ValidateWeights(map[string]float64{"a": 1.0, "b": 0.0}, bounds, 1e-6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside bounds")

	require.Error(t, ValidateWeights(nil, bounds, 1e-6))
}
