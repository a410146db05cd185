package fusion

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/taixiu/internal/cascade"
	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/manual"
)

func TestFuse_WithoutManual(t *testing.T) {
	e := New(DefaultConfig())
	ens := domain.Distribution{Tai: 0.6, Xiu: 0.4}
	res := e.Fuse(ens, cascade.Result{Prediction: domain.Xiu, Score: 90}, nil)

	// weights rescale to 0.5625/0.4375, so Xiu = (0.45*0.4 + 0.35*0.9) / 0.8
	assert.Equal(t, domain.Xiu, res.Prediction)
	assert.InDelta(t, 0.495/0.8, res.Confidence, 1e-9)
	assert.InDelta(t, 1.0, res.Distribution.Tai+res.Distribution.Xiu, 1e-9)
	assert.Equal(t, 0.0, res.Weights.Manual)
}

func TestFuse_WithoutManualReportsAppliedWeights(t *testing.T) {
	e := New(DefaultConfig())
	res := e.Fuse(domain.Uniform(), cascade.Result{Prediction: domain.Tai, Score: 80}, nil)

	assert.InDelta(t, 0.5625, res.Weights.Ensemble, 1e-9)
	assert.InDelta(t, 0.4375, res.Weights.Cascade, 1e-9)
	assert.Equal(t, 0.0, res.Weights.Manual)
	assert.InDelta(t, 1.0, res.Weights.Sum(), 1e-9)

	// 0.5625*0.5 + 0.4375*0.8
	assert.InDelta(t, 0.63125, res.Distribution.Tai, 1e-9)
}

func TestFuse_ManualShiftsWeights(t *testing.T) {
	e := New(DefaultConfig())
	ens := domain.Distribution{Tai: 0.6, Xiu: 0.4}
	casc := cascade.Result{Prediction: domain.Xiu, Score: 60}
	match := &manual.Match{Pattern: []int{9, 12, 9}, Prediction: domain.Xiu}

	res := e.Fuse(ens, casc, match)
	assert.Equal(t, Weights{Ensemble: 0.35, Cascade: 0.25, Manual: 0.40}, res.Weights)
	assert.Equal(t, domain.Xiu, res.Prediction)
	assert.InDelta(t, 0.65, res.Confidence, 1e-9)
}

func TestFuse_ManualBreaksDisagreement(t *testing.T) {
	e := New(DefaultConfig())
	ens := domain.Distribution{Tai: 0.55, Xiu: 0.45}
	casc := cascade.Result{Prediction: domain.Xiu, Score: 55}

	res := e.Fuse(ens, casc, &manual.Match{Prediction: domain.Tai})
	assert.Equal(t, domain.Tai, res.Prediction)

	res = e.Fuse(ens, casc, &manual.Match{Prediction: domain.Xiu})
	assert.Equal(t, domain.Xiu, res.Prediction)
}

func TestFuse_AlwaysNormalised(t *testing.T) {
	e := New(DefaultConfig())
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		p := rng.Float64()
		casc := cascade.Result{Prediction: domain.Symbol(rng.Intn(2)), Score: rng.Intn(101)}
		var match *manual.Match
		if rng.Intn(2) == 0 {
			match = &manual.Match{Prediction: domain.Symbol(rng.Intn(2))}
		}
		res := e.Fuse(domain.Distribution{Tai: p, Xiu: 1 - p}, casc, match)

		require.InDelta(t, 1.0, res.Distribution.Tai+res.Distribution.Xiu, 1e-6)
		require.GreaterOrEqual(t, res.Distribution.Tai, 0.0)
		require.GreaterOrEqual(t, res.Distribution.Xiu, 0.0)
		require.GreaterOrEqual(t, res.Confidence, 0.5)
	}
}

func TestFuse_TieGoesToTai(t *testing.T) {
	e := New(DefaultConfig())
	res := e.Fuse(domain.Uniform(), cascade.Result{Prediction: domain.Xiu, Score: 50}, nil)
	assert.Equal(t, domain.Tai, res.Prediction)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Base.Manual = 0.3
	assert.ErrorContains(t, cfg.Validate(), "sum to")

	cfg = DefaultConfig()
	cfg.ManualConfidence = 0.4
	assert.ErrorContains(t, cfg.Validate(), "manual_confidence")
}
