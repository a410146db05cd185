package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/taixiu/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	round_id      BIGINT PRIMARY KEY,
	prediction_id TEXT NOT NULL,
	predicted     TEXT NOT NULL,
	actual        TEXT NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL,
	hit           BOOLEAN NOT NULL,
	cascade_hit   BOOLEAN NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// LedgerRepo implements persistence.Ledger for PostgreSQL.
type LedgerRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewLedgerRepo creates a ledger over db.
func NewLedgerRepo(db *sqlx.DB, timeout time.Duration) *LedgerRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LedgerRepo{db: db, timeout: timeout}
}

var _ persistence.Ledger = (*LedgerRepo)(nil)

// EnsureSchema creates the predictions table if needed.
func (r *LedgerRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create predictions table: %w", err)
	}
	return nil
}

// Insert records one settlement; a second insert for the same round is ignored.
func (r *LedgerRepo) Insert(ctx context.Context, entry persistence.LedgerEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO predictions
		(round_id, prediction_id, predicted, actual, confidence, hit, cascade_hit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (round_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		entry.RoundID, entry.PredictionID, entry.Predicted, entry.Actual,
		entry.Confidence, entry.Hit, entry.CascadeHit)
	if err != nil {
		return fmt.Errorf("failed to insert prediction for round %d: %w", entry.RoundID, err)
	}
	return nil
}

// Recent returns the newest entries first.
func (r *LedgerRepo) Recent(ctx context.Context, limit int) ([]persistence.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := `
		SELECT round_id, prediction_id, predicted, actual, confidence, hit, cascade_hit, created_at
		FROM predictions
		ORDER BY round_id DESC
		LIMIT $1`

	var entries []persistence.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	return entries, nil
}

// Summary aggregates hit counts over the whole ledger.
func (r *LedgerRepo) Summary(ctx context.Context) (persistence.LedgerSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN hit THEN 1 ELSE 0 END), 0) AS hits,
		       COALESCE(SUM(CASE WHEN cascade_hit THEN 1 ELSE 0 END), 0) AS cascade_hits
		FROM predictions`

	var s persistence.LedgerSummary
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		return persistence.LedgerSummary{}, fmt.Errorf("failed to summarise predictions: %w", err)
	}
	if s.Total > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Total)
	}
	return s, nil
}
