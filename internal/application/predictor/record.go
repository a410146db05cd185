package predictor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sawpanic/taixiu/internal/cascade"
	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/manual"
	"github.com/sawpanic/taixiu/internal/predict/models"
	"github.com/sawpanic/taixiu/internal/regime"
)

// ModelBreakdown is one predictor's raw output and live weight.
type ModelBreakdown struct {
	Distribution domain.Distribution `json:"distribution"`
	Weight       float64             `json:"weight"`
}

// RunInfo describes the current streak.
type RunInfo struct {
	Symbol domain.Symbol `json:"symbol"`
	Length int           `json:"length"`
}

// Record is the published prediction for the next round.
type Record struct {
	ID           string                    `json:"id"`
	Timestamp    time.Time                 `json:"timestamp"`
	RoundID      int64                     `json:"round_id"`
	HistorySize  int                       `json:"history_size"`
	Prediction   domain.Symbol             `json:"prediction"`
	// Confidence is a 0..100 calibration score with two decimals. It blends the
	// fused mass with ensemble agreement and entropy, so it is not the probability
	// of Prediction and can sit below 50 for a confident-looking Distribution.
	Confidence   float64                   `json:"confidence"`
	Distribution domain.Distribution       `json:"distribution"`
	Models       map[string]ModelBreakdown `json:"models"`
	Pattern      models.DetectedPattern    `json:"pattern"`
	Cascade      cascade.Result            `json:"cascade"`
	Manual       *manual.Match             `json:"manual"`
	Road         regime.Road               `json:"road"`
	Run          RunInfo                   `json:"run"`
	Reason       string                    `json:"reason"`
}

// Settlement is the outcome of learning one round.
type Settlement struct {
	RoundID           int64         `json:"round_id"`
	PredictionID      string        `json:"prediction_id"`
	Predicted         domain.Symbol `json:"predicted"`
	Actual            domain.Symbol `json:"actual"`
	Confidence        float64       `json:"confidence"`
	Hit               bool          `json:"hit"`
	CascadeHit        bool          `json:"cascade_hit"`
	ConsecutiveMisses int           `json:"consecutive_misses"`
}

// Stats summarises the session.
type Stats struct {
	Settled           int                `json:"settled"`
	Hits              int                `json:"hits"`
	HitRate           float64            `json:"hit_rate"`
	CascadeHits       int                `json:"cascade_hits"`
	CascadeHitRate    float64            `json:"cascade_hit_rate"`
	ConsecutiveMisses int                `json:"consecutive_misses"`
	HistorySize       int                `json:"history_size"`
	Patterns          int                `json:"patterns"`
	RoadChanges       int                `json:"road_changes"`
	Weights           map[string]float64 `json:"weights"`
}

func composeReason(rec *Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cascade [%s] %s -> %s (score %d)", rec.Cascade.Rule, rec.Cascade.Reason, rec.Cascade.Prediction, rec.Cascade.Score)

	names := make([]string, 0, len(rec.Models))
	for name := range rec.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		m := rec.Models[name]
		parts = append(parts, fmt.Sprintf("%s %.0f%%@%.2f", name, m.Distribution.Tai*100, m.Weight))
	}
	fmt.Fprintf(&b, " | Ensemble Tài %s", strings.Join(parts, ", "))

	if rec.Pattern.Type != models.PatternNone {
		fmt.Fprintf(&b, " | Pattern %s (%.2f)", rec.Pattern.Type, rec.Pattern.Strength)
	}
	if rec.Manual != nil {
		fmt.Fprintf(&b, " | Manual %s -> %s", rec.Manual.Note, rec.Manual.Prediction)
	}
	fmt.Fprintf(&b, " | Road %s", rec.Road)
	if rec.Run.Length > 0 {
		fmt.Fprintf(&b, " | Run %d x %s", rec.Run.Length, rec.Run.Symbol)
	}
	fmt.Fprintf(&b, " => %s %.2f%%", rec.Prediction, rec.Confidence)
	return b.String()
}
