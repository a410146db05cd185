package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/metrics"
)

func TestNormalize_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []domain.Round
	}{
		{
			name: "single object",
			body: `{"Phien": 101, "Xuc_xac_1": 3, "Xuc_xac_2": 4, "Xuc_xac_3": 6, "Tong": 13, "Ket_qua": "Tài"}`,
			want: []domain.Round{{ID: 101, Dice: []int{3, 4, 6}, Total: 13, Result: "Tài"}},
		},
		{
			name: "array sorted by id",
			body: `[{"id": 7, "dice": [1, 2, 3], "result": "Xỉu"}, {"id": 6, "d1": 6, "d2": 6, "d3": 5, "total": 17, "result": "Tài"}]`,
			want: []domain.Round{
				{ID: 6, Dice: []int{6, 6, 5}, Total: 17, Result: "Tài"},
				{ID: 7, Dice: []int{1, 2, 3}, Total: 6, Result: "Xỉu"},
			},
		},
		{
			name: "wrapped list",
			body: `{"code": 0, "data": [{"session": 12, "sum": 9, "result": "Xỉu"}]}`,
			want: []domain.Round{{ID: 12, Total: 9, Result: "Xỉu"}},
		},
		{
			name: "wrapped object with result from total",
			body: `{"items": {"phien": 5, "xuc_xac_1": 5, "xuc_xac_2": 5, "xuc_xac_3": 2}}`,
			want: []domain.Round{{ID: 5, Dice: []int{5, 5, 2}, Total: 12, Result: "Tài"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Errors(t *testing.T) {
	_, err := Normalize([]byte(`{not json`))
	assert.ErrorContains(t, err, "invalid JSON")

	_, err = Normalize([]byte(`{"data": []}`))
	assert.ErrorIs(t, err, ErrNoRounds)

	_, err = Normalize([]byte(`[1, 2, 3]`))
	assert.ErrorIs(t, err, ErrNoRounds)

	_, err = Normalize([]byte(`"hello"`))
	assert.ErrorIs(t, err, ErrNoRounds)
}

func testConfig(url string) Config {
	return Config{
		URL:       url,
		Interval:  10 * time.Millisecond,
		Timeout:   time.Second,
		RPS:       1000,
		Burst:     10,
		UserAgent: "taixiu-test",
		Breaker:   BreakerConfig{MaxRequests: 1, Timeout: time.Minute, ConsecutiveFailures: 2},
	}
}

func TestPoller_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "taixiu-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"list": [{"id": 2, "result": "Tài"}, {"id": 1, "result": "Xỉu"}]}`))
	}))
	defer srv.Close()

	p, err := NewPoller(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	rounds, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, int64(1), rounds[0].ID)
}

func TestPoller_BreakerOpensOnFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p, err := NewPoller(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := p.Fetch(context.Background())
		assert.ErrorContains(t, err, "status 502")
	}
	_, err = p.Fetch(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "open", p.BreakerState())
}

func TestPoller_EmptyPayloadKeepsBreakerClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	p, err := NewPoller(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := p.Fetch(context.Background())
		assert.ErrorIs(t, err, ErrNoRounds)
	}
	assert.Equal(t, "closed", p.BreakerState())
}

func TestPoller_RunDeliversOnlyNewRounds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 1, "result": "Tài"}, {"id": 2, "result": "Tài"}, {"id": 3, "result": "Xỉu"}]`))
	}))
	defer srv.Close()

	p, err := NewPoller(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []domain.Round
	err = p.Run(ctx, func() int64 { return 2 }, func(ctx context.Context, rounds []domain.Round) error {
		got = rounds
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
}

func TestPoller_RunRecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"phien": 10, "tong": 12}, {"phien": 11, "tong": 5}]}`))
	}))
	defer srv.Close()

	p, err := NewPoller(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)
	m := metrics.NewMetricsRegistry(nil)
	p.SetMetrics(m)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = p.Run(ctx, func() int64 { return 0 }, func(ctx context.Context, rounds []domain.Round) error {
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	var rounds dto.Metric
	require.NoError(t, m.PollRounds.Write(&rounds))
	assert.Equal(t, 2.0, rounds.GetCounter().GetValue())

	var ok dto.Metric
	require.NoError(t, m.PollDuration.WithLabelValues("ok").(prometheus.Histogram).Write(&ok))
	assert.Equal(t, uint64(1), ok.GetHistogram().GetSampleCount())
}

func TestNewPoller_RejectsBadURL(t *testing.T) {
	_, err := NewPoller(Config{URL: "not a url"}, nil)
	assert.Error(t, err)
}

func TestPoller_FetchIsPaced(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`[{"id": 1, "result": "Tài"}]`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RPS = 10
	cfg.Burst = 1
	p, err := NewPoller(cfg, srv.Client())
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := p.Fetch(context.Background())
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "a cancelled poll never reaches the feed")
}

func TestNewPacer_Defaults(t *testing.T) {
	unpaced := newPacer(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, unpaced.Allow())
	}

	paced := newPacer(0.001, 0)
	assert.True(t, paced.Allow())
	assert.False(t, paced.Allow())
}
