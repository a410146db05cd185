package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/taixiu/internal/application/predictor"
	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/metrics"
	"github.com/sawpanic/taixiu/internal/persistence"
)

type fakeLedger struct {
	mu      sync.Mutex
	entries []persistence.LedgerEntry
	err     error
}

func (f *fakeLedger) Insert(_ context.Context, e persistence.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLedger) Recent(_ context.Context, limit int) ([]persistence.LedgerEntry, error) {
	return f.entries, nil
}

func (f *fakeLedger) Summary(_ context.Context) (persistence.LedgerSummary, error) {
	return persistence.LedgerSummary{Total: len(f.entries)}, nil
}

type recorder struct {
	records []predictor.Record
}

func (r *recorder) Publish(rec predictor.Record) { r.records = append(r.records, rec) }

func rounds() []domain.Round {
	return []domain.Round{
		{ID: 1, Dice: []int{1, 2, 3}, Result: "Xỉu"},
		{ID: 2, Dice: []int{4, 5, 6}, Result: "Tài"},
		{ID: 3, Dice: []int{2, 2, 3}, Result: "Xỉu"},
	}
}

func TestLearn_PersistsAndPublishes(t *testing.T) {
	store := persistence.NewMemoryStore()
	ledger := &fakeLedger{}
	pub := &recorder{}
	m := metrics.NewMetricsRegistry(nil)
	s := New(predictor.New(predictor.DefaultConfig()),
		WithStore(store), WithLedger(ledger), WithMetrics(m), WithPublisher(pub))

	pending := s.Predict()
	st, next, err := s.Learn(context.Background(), rounds()[0])
	require.NoError(t, err)

	assert.Equal(t, int64(1), st.RoundID)
	assert.Equal(t, pending.ID, st.PredictionID)
	assert.Equal(t, int64(2), next.RoundID)

	require.Len(t, ledger.entries, 1)
	assert.Equal(t, int64(1), ledger.entries[0].RoundID)

	require.Len(t, pub.records, 1)
	assert.Equal(t, next.ID, pub.records[0].ID)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Rounds, 1)
	assert.Equal(t, 1, snap.Settled)
}

func TestLearn_StorageFailureDoesNotUndoRound(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("db down")}
	s := New(predictor.New(predictor.DefaultConfig()), WithLedger(ledger))

	_, _, err := s.Learn(context.Background(), rounds()[0])
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.LastRoundID())
}

func TestLearn_StaleRound(t *testing.T) {
	pub := &recorder{}
	s := New(predictor.New(predictor.DefaultConfig()), WithPublisher(pub))
	_, _, err := s.Learn(context.Background(), rounds()[1])
	require.NoError(t, err)

	_, _, err = s.Learn(context.Background(), rounds()[0])
	assert.ErrorIs(t, err, predictor.ErrStaleRound)
	assert.Len(t, pub.records, 1)
}

func TestLearnBatch_SkipsStale(t *testing.T) {
	s := New(predictor.New(predictor.DefaultConfig()))
	require.NoError(t, s.LearnBatch(context.Background(), rounds()))
	require.NoError(t, s.LearnBatch(context.Background(), rounds()))

	assert.Equal(t, int64(3), s.LastRoundID())
	assert.Equal(t, 3, s.Stats().Settled)
	assert.Len(t, s.History(10), 3)
}

func TestLearnBatch_StopsOnCancel(t *testing.T) {
	s := New(predictor.New(predictor.DefaultConfig()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.LearnBatch(ctx, rounds()), context.Canceled)
	assert.Equal(t, int64(0), s.LastRoundID())
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()

	first := New(predictor.New(predictor.DefaultConfig()), WithStore(store))
	require.NoError(t, first.LearnBatch(ctx, rounds()))
	want := first.Predict()

	second := New(predictor.New(predictor.DefaultConfig()), WithStore(store))
	ok, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	got := second.Predict()
	assert.Equal(t, want.Prediction, got.Prediction)
	assert.Equal(t, want.Confidence, got.Confidence)
	assert.Equal(t, 3, second.Stats().Settled)
}

func TestRestore_NothingSaved(t *testing.T) {
	s := New(predictor.New(predictor.DefaultConfig()), WithStore(persistence.NewMemoryStore()))
	ok, err := s.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = New(predictor.New(predictor.DefaultConfig())).Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
