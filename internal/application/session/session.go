// Package session wires the predictor service to its host-side collaborators:
// snapshot store, prediction ledger, metrics and live subscribers.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/taixiu/internal/application/predictor"
	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/metrics"
	"github.com/sawpanic/taixiu/internal/persistence"
)

// Publisher receives every record produced after a settlement.
type Publisher interface {
	Publish(rec predictor.Record)
}

// Session serialises learning so the record settled by a round is the one that was
// published before it.
type Session struct {
	mu      sync.Mutex
	svc     *predictor.Service
	store   persistence.SnapshotStore
	ledger  persistence.Ledger
	metrics *metrics.MetricsRegistry
	pubs    []Publisher
}

// Option configures a Session.
type Option func(*Session)

// WithStore saves a snapshot after every learned round.
func WithStore(store persistence.SnapshotStore) Option {
	return func(s *Session) { s.store = store }
}

// WithLedger writes every settlement to the ledger.
func WithLedger(ledger persistence.Ledger) Option {
	return func(s *Session) { s.ledger = ledger }
}

// WithMetrics records predictions and settlements.
func WithMetrics(m *metrics.MetricsRegistry) Option {
	return func(s *Session) { s.metrics = m }
}

// WithPublisher adds a subscriber for new records.
func WithPublisher(p Publisher) Option {
	return func(s *Session) { s.pubs = append(s.pubs, p) }
}

// New builds a session around svc.
func New(svc *predictor.Service, opts ...Option) *Session {
	s := &Session{svc: svc}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Service exposes the wrapped predictor.
func (s *Session) Service() *predictor.Service { return s.svc }

// Restore loads the last saved snapshot. A missing snapshot is not an error.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	snap, err := s.store.Load(ctx)
	if errors.Is(err, persistence.ErrSnapshotNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.svc.Restore(snap); err != nil {
		return false, fmt.Errorf("restore snapshot: %w", err)
	}
	log.Info().
		Int("rounds", len(snap.Rounds)).
		Int("settled", snap.Settled).
		Msg("Session restored from snapshot")
	return true, nil
}

// Predict returns the record for the next round.
func (s *Session) Predict() predictor.Record {
	return s.svc.Predict()
}

// History returns up to n most recent rounds.
func (s *Session) History(n int) []domain.Round {
	return s.svc.History(n)
}

// Stats returns the session counters.
func (s *Session) Stats() predictor.Stats {
	return s.svc.Stats()
}

// LastRoundID is the id of the newest stored round.
func (s *Session) LastRoundID() int64 {
	return s.svc.LastRoundID()
}

// Learn settles the pending prediction with r, then persists and publishes the
// record for the following round. Storage failures are logged; they never undo the
// learned round.
func (s *Session) Learn(ctx context.Context, r domain.Round) (predictor.Settlement, predictor.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.svc.Predict()
	st, err := s.svc.Learn(r)
	if err != nil {
		return predictor.Settlement{}, predictor.Record{}, err
	}
	next := s.svc.Predict()

	if s.metrics != nil {
		s.metrics.RecordSettlement(pending.Cascade.Rule, st, s.svc.Stats())
		s.metrics.RecordPrediction(next)
	}
	if s.ledger != nil {
		if err := s.ledger.Insert(ctx, persistence.EntryFromSettlement(st)); err != nil {
			log.Error().Err(err).Int64("round_id", st.RoundID).Msg("Ledger insert failed")
		}
	}
	if s.store != nil {
		if err := s.store.Save(ctx, s.svc.Snapshot()); err != nil {
			log.Error().Err(err).Int64("round_id", st.RoundID).Msg("Snapshot save failed")
		}
	}
	for _, p := range s.pubs {
		p.Publish(next)
	}

	log.Info().
		Int64("round_id", st.RoundID).
		Str("predicted", st.Predicted.String()).
		Str("actual", st.Actual.String()).
		Bool("hit", st.Hit).
		Str("next", next.Prediction.String()).
		Float64("confidence", next.Confidence).
		Msg("Round settled")
	return st, next, nil
}

// LearnBatch learns rounds in order, skipping stale ones. It has the shape of an
// ingest handler.
func (s *Session) LearnBatch(ctx context.Context, rounds []domain.Round) error {
	for _, r := range rounds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, _, err := s.Learn(ctx, r); err != nil {
			if errors.Is(err, predictor.ErrStaleRound) {
				continue
			}
			return err
		}
	}
	return nil
}
