// Package metrics exposes the prediction session as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/taixiu/internal/application/predictor"
)

// MetricsRegistry holds all Prometheus metrics for the service.
type MetricsRegistry struct {
	gatherer prometheus.Gatherer

	// Prediction metrics
	Predictions  *prometheus.CounterVec
	CascadeRules *prometheus.CounterVec
	Confidence   prometheus.Histogram

	// Settlement metrics
	Settlements       *prometheus.CounterVec
	HitRate           prometheus.Gauge
	ConsecutiveMisses prometheus.Gauge
	EnsembleWeight    *prometheus.GaugeVec

	// Feed metrics
	PollDuration *prometheus.HistogramVec
	PollRounds   prometheus.Counter

	// HTTP metrics
	HTTPDuration *prometheus.HistogramVec
}

// NewMetricsRegistry creates the collectors and registers them with reg. A nil reg
// uses a fresh registry.
func NewMetricsRegistry(reg *prometheus.Registry) *MetricsRegistry {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &MetricsRegistry{
		gatherer: reg,

		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taixiu_predictions_total",
				Help: "Predictions published by predicted side",
			},
			[]string{"prediction"},
		),

		CascadeRules: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taixiu_cascade_rule_total",
				Help: "Settled predictions by the cascade rule that fired",
			},
			[]string{"rule"},
		),

		Confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "taixiu_prediction_confidence",
				Help:    "Confidence of published predictions (0-100)",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),

		Settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taixiu_settlements_total",
				Help: "Settled predictions by result",
			},
			[]string{"result"},
		),

		HitRate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "taixiu_hit_rate",
				Help: "Session hit rate (0.0 to 1.0)",
			},
		),

		ConsecutiveMisses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "taixiu_consecutive_misses",
				Help: "Current run of missed predictions",
			},
		),

		EnsembleWeight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "taixiu_ensemble_weight",
				Help: "Live ensemble weight per model",
			},
			[]string{"model"},
		),

		PollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taixiu_poll_duration_seconds",
				Help:    "Duration of feed polls in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"result"},
		),

		PollRounds: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "taixiu_polled_rounds_total",
				Help: "New rounds received from the feed",
			},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taixiu_http_request_duration_seconds",
				Help:    "HTTP request duration by route, method and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}

	reg.MustRegister(
		m.Predictions,
		m.CascadeRules,
		m.Confidence,
		m.Settlements,
		m.HitRate,
		m.ConsecutiveMisses,
		m.EnsembleWeight,
		m.PollDuration,
		m.PollRounds,
		m.HTTPDuration,
	)
	return m
}

// RecordPrediction counts a published record.
func (m *MetricsRegistry) RecordPrediction(rec predictor.Record) {
	m.Predictions.WithLabelValues(rec.Prediction.String()).Inc()
	m.Confidence.Observe(rec.Confidence)
}

// RecordSettlement counts a settlement and refreshes the session gauges.
func (m *MetricsRegistry) RecordSettlement(rule string, st predictor.Settlement, stats predictor.Stats) {
	result := "miss"
	if st.Hit {
		result = "hit"
	}
	m.Settlements.WithLabelValues(result).Inc()
	if rule != "" {
		m.CascadeRules.WithLabelValues(rule).Inc()
	}
	m.HitRate.Set(stats.HitRate)
	m.ConsecutiveMisses.Set(float64(stats.ConsecutiveMisses))
	for model, w := range stats.Weights {
		m.EnsembleWeight.WithLabelValues(model).Set(w)
	}
}

// PollTimer tracks one feed poll.
type PollTimer struct {
	metrics *MetricsRegistry
	start   time.Time
}

// StartPollTimer begins timing a feed poll.
func (m *MetricsRegistry) StartPollTimer() *PollTimer {
	return &PollTimer{metrics: m, start: time.Now()}
}

// Stop records the poll with its result ("ok", "empty" or "error") and the number of
// new rounds it delivered.
func (pt *PollTimer) Stop(result string, rounds int) {
	duration := time.Since(pt.start)
	pt.metrics.PollDuration.WithLabelValues(result).Observe(duration.Seconds())
	pt.metrics.PollRounds.Add(float64(rounds))

	log.Debug().
		Str("result", result).
		Int("rounds", rounds).
		Dur("duration", duration).
		Msg("Feed poll completed")
}

// ObserveHTTP records one served request.
func (m *MetricsRegistry) ObserveHTTP(route, method string, status int, d time.Duration) {
	m.HTTPDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
