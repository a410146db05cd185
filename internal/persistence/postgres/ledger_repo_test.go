package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/taixiu/internal/persistence"
)

func newMockRepo(t *testing.T) (*LedgerRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewLedgerRepo(sqlx.NewDb(mockDB, "postgres"), time.Second), mock
}

func TestLedgerRepo_Insert(t *testing.T) {
	repo, mock := newMockRepo(t)
	entry := persistence.LedgerEntry{
		RoundID:      42,
		PredictionID: "3f8b",
		Predicted:    "Tài",
		Actual:       "Xỉu",
		Confidence:   61.25,
		Hit:          false,
		CascadeHit:   true,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO predictions")).
		WithArgs(int64(42), "3f8b", "Tài", "Xỉu", 61.25, false, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_InsertError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO predictions")).
		WillReturnError(errors.New("connection reset"))

	err := repo.Insert(context.Background(), persistence.LedgerEntry{RoundID: 7})
	assert.ErrorContains(t, err, "round 7")
	assert.ErrorContains(t, err, "connection reset")
}

func TestLedgerRepo_Recent(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"round_id", "prediction_id", "predicted", "actual", "confidence", "hit", "cascade_hit", "created_at"}).
		AddRow(int64(11), "b", "Tài", "Tài", 70.5, true, true, ts).
		AddRow(int64(10), "a", "Xỉu", "Tài", 55.0, false, false, ts)
	mock.ExpectQuery(regexp.QuoteMeta("FROM predictions")).
		WithArgs(100).
		WillReturnRows(rows)

	entries, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(11), entries[0].RoundID)
	assert.True(t, entries[0].Hit)
	assert.Equal(t, "Xỉu", entries[1].Predicted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_Summary(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "hits", "cascade_hits"}).AddRow(8, 6, 5))

	s, err := repo.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, s.Total)
	assert.Equal(t, 6, s.Hits)
	assert.InDelta(t, 0.75, s.HitRate, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_EnsureSchema(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS predictions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.ErrorContains(t, err, "DSN")
}
