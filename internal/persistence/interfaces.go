// Package persistence stores session snapshots and the prediction ledger on behalf
// of the host process. The engine itself never touches storage.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/taixiu/internal/application/predictor"
)

// ErrSnapshotNotFound is returned by Load when no snapshot has been saved.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore keeps the latest session snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, snap predictor.Snapshot) error
	Load(ctx context.Context) (predictor.Snapshot, error)
	Close() error
}

// LedgerEntry is one settled prediction.
type LedgerEntry struct {
	RoundID      int64     `json:"round_id" db:"round_id"`
	PredictionID string    `json:"prediction_id" db:"prediction_id"`
	Predicted    string    `json:"predicted" db:"predicted"`
	Actual       string    `json:"actual" db:"actual"`
	Confidence   float64   `json:"confidence" db:"confidence"`
	Hit          bool      `json:"hit" db:"hit"`
	CascadeHit   bool      `json:"cascade_hit" db:"cascade_hit"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// EntryFromSettlement converts a settlement into a ledger row.
func EntryFromSettlement(s predictor.Settlement) LedgerEntry {
	return LedgerEntry{
		RoundID:      s.RoundID,
		PredictionID: s.PredictionID,
		Predicted:    s.Predicted.String(),
		Actual:       s.Actual.String(),
		Confidence:   s.Confidence,
		Hit:          s.Hit,
		CascadeHit:   s.CascadeHit,
	}
}

// LedgerSummary aggregates the ledger.
type LedgerSummary struct {
	Total       int     `json:"total" db:"total"`
	Hits        int     `json:"hits" db:"hits"`
	CascadeHits int     `json:"cascade_hits" db:"cascade_hits"`
	HitRate     float64 `json:"hit_rate" db:"-"`
}

// Ledger records settled predictions.
type Ledger interface {
	// Insert is idempotent per round id.
	Insert(ctx context.Context, entry LedgerEntry) error
	Recent(ctx context.Context, limit int) ([]LedgerEntry, error)
	Summary(ctx context.Context) (LedgerSummary, error)
}
