// Package predictor owns one prediction session: the history, the learned state of
// every engine component, and the predict/learn cycle over them.
package predictor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/taixiu/internal/cascade"
	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/ensemble"
	"github.com/sawpanic/taixiu/internal/fusion"
	"github.com/sawpanic/taixiu/internal/manual"
	"github.com/sawpanic/taixiu/internal/predict/models"
	"github.com/sawpanic/taixiu/internal/regime"
)

// ErrStaleRound is returned by Learn for a round whose id is not newer than the
// last stored round.
var ErrStaleRound = errors.New("stale round")

// Confidence blend coefficients.
const (
	confBase          = 0.55
	confEnsembleTop   = 0.25
	confConcentration = 0.20
	confEntropy       = 0.15
)

var recordNamespace = uuid.MustParse("6f1c9d3e-2b7a-4c55-9a0e-3d8f1b6e2c47")

// Service is safe for concurrent use. Predict and Learn are serialised by one
// mutex because a learn mutates several components non-atomically.
type Service struct {
	mu sync.Mutex

	cfg      Config
	history  *domain.History
	ens      *ensemble.Ensemble
	casc     *cascade.Cascade
	patterns *cascade.PatternMemory
	errors   *cascade.ErrorMemory
	flags    cascade.SessionFlags
	matcher  *manual.Matcher
	fusion   *fusion.Engine
	road     *regime.Detector

	misses      int
	settled     int
	hits        int
	cascadeHits int

	now func() time.Time
}

// New returns an empty session.
func New(cfg Config) *Service {
	matcher := cfg.Manual
	if matcher == nil {
		matcher = manual.NewMatcher()
	}
	return &Service{
		cfg:      cfg,
		history:  domain.NewHistory(cfg.HistorySize),
		ens:      ensemble.New(cfg.Ensemble),
		casc:     cascade.New(cfg.Cascade),
		patterns: cascade.NewPatternMemory(cfg.PatternMinLen, cfg.PatternMaxLen, cfg.PatternCapacity),
		errors:   cascade.NewErrorMemory(),
		matcher:  matcher,
		fusion:   fusion.New(cfg.Fusion),
		road:     regime.NewDetectorWithConfig(cfg.Road),
		now:      time.Now,
	}
}

// SetClock replaces the record timestamp source.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// evaluation is everything derived from the current state for the next round.
type evaluation struct {
	record Record
	flags  cascade.SessionFlags // flags as the cascade left them, committed by Learn
}

// Predict returns the record for the next round. It does not change the session.
func (s *Service) Predict() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluate().record
}

func (s *Service) evaluate() evaluation {
	seq := s.history.Sequence()
	mix := s.ens.PredictMix(seq)

	flags := s.flags
	in := cascade.Input{
		Sequence: seq,
		Misses:   s.misses,
		Patterns: s.patterns,
		Errors:   s.errors,
		Totals:   s.history.Totals(s.cfg.Cascade.TotalsWindow),
		Flags:    &flags,
	}
	last, hasLast := s.history.Last()
	if hasLast && last.HasDice() {
		in.Dice = last.Dice
	}
	cres := s.casc.Evaluate(in)

	totals := s.history.Totals(0)
	match := s.matcher.Match(totals)
	fused := s.fusion.Fuse(mix.Distribution, cres, match)

	_, ensTop := mix.Distribution.Top()
	blend := confBase*fused.Confidence +
		confEnsembleTop*ensTop +
		confConcentration*s.ens.Concentration() -
		confEntropy*fused.Distribution.Entropy()
	confidence := decimal.NewFromFloat(domain.Clamp(blend, 0, 1) * 100).Round(2).InexactFloat64()

	breakdown := make(map[string]ModelBreakdown, len(mix.Outputs))
	for name, out := range mix.Outputs {
		breakdown[name] = ModelBreakdown{Distribution: out, Weight: mix.Weights[name]}
	}

	runSym, runLen := seq.Run()
	nextID := int64(1)
	if hasLast {
		nextID = last.ID + 1
	}

	rec := Record{
		ID:           uuid.NewSHA1(recordNamespace, []byte(fmt.Sprintf("%d/%d/%d", nextID, s.settled, s.history.Len()))).String(),
		Timestamp:    s.now().UTC(),
		RoundID:      nextID,
		HistorySize:  s.history.Len(),
		Prediction:   fused.Prediction,
		Confidence:   confidence,
		Distribution: fused.Distribution,
		Models:       breakdown,
		Pattern:      models.DetectPattern(seq),
		Cascade:      cres,
		Manual:       match,
		Road:         s.road.Classify(seq).Road,
		Run:          RunInfo{Symbol: runSym, Length: runLen},
	}
	rec.Reason = composeReason(&rec)
	return evaluation{record: rec, flags: flags}
}

// Learn settles the prediction for round r and appends r to the history. A round
// with id 0 is given the next id.
func (s *Service) Learn(r domain.Round) (Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r = r.Normalize()
	if last, ok := s.history.Last(); ok {
		if r.ID == 0 {
			r.ID = last.ID + 1
		}
		if r.ID <= last.ID {
			return Settlement{}, fmt.Errorf("%w: round %d, last stored %d", ErrStaleRound, r.ID, last.ID)
		}
	} else if r.ID == 0 {
		r.ID = 1
	}

	ev := s.evaluate()
	rec := ev.record
	seq := s.history.Sequence()
	actual := domain.Encode(r)

	s.ens.UpdateWeights(seq, actual)
	s.casc.Settle(s.patterns, s.errors, seq, rec.Cascade.Prediction, actual)

	hit := rec.Prediction == actual
	cascadeHit := rec.Cascade.Prediction == actual
	s.settled++
	if hit {
		s.hits++
		s.misses = 0
	} else {
		s.misses++
	}
	if cascadeHit {
		s.cascadeHits++
	}
	s.flags = ev.flags

	s.history.Append(r)
	next := s.history.Sequence()
	s.ens.TrainAll(next)
	road := s.road.Observe(r.ID, next)

	log.Debug().
		Int64("round", r.ID).
		Str("predicted", rec.Prediction.String()).
		Str("actual", actual.String()).
		Bool("hit", hit).
		Str("rule", rec.Cascade.Rule).
		Int("misses", s.misses).
		Str("road", road.Road.String()).
		Msg("Round learned")

	return Settlement{
		RoundID:           r.ID,
		PredictionID:      rec.ID,
		Predicted:         rec.Prediction,
		Actual:            actual,
		Confidence:        rec.Confidence,
		Hit:               hit,
		CascadeHit:        cascadeHit,
		ConsecutiveMisses: s.misses,
	}, nil
}

// Seed appends rounds without settling predictions, then retrains. Rounds that are
// not newer than the last stored one are skipped. It returns how many were added.
func (s *Service) Seed(rounds []domain.Round) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, r := range rounds {
		last, ok := s.history.Last()
		if ok && r.ID != 0 && r.ID <= last.ID {
			continue
		}
		if r.ID == 0 {
			r.ID = last.ID + 1
		}
		s.history.Append(r)
		added++
	}
	if added > 0 {
		seq := s.history.Sequence()
		s.ens.TrainAll(seq)
		last, _ := s.history.Last()
		s.road.Observe(last.ID, seq)
	}
	log.Debug().Int("added", added).Int("history", s.history.Len()).Msg("History seeded")
	return added
}

// History returns at most the last n rounds, oldest first; n <= 0 returns all.
func (s *Service) History(n int) []domain.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Recent(n)
}

// LastRoundID returns the id of the newest stored round, 0 when empty.
func (s *Service) LastRoundID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.history.Last(); ok {
		return last.ID
	}
	return 0
}

// Stats returns the session counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Settled:           s.settled,
		Hits:              s.hits,
		CascadeHits:       s.cascadeHits,
		ConsecutiveMisses: s.misses,
		HistorySize:       s.history.Len(),
		Patterns:          s.patterns.Len(),
		RoadChanges:       s.road.Changes(),
		Weights:           s.ens.Weights(),
	}
	if s.settled > 0 {
		st.HitRate = float64(s.hits) / float64(s.settled)
		st.CascadeHitRate = float64(s.cascadeHits) / float64(s.settled)
	}
	return st
}
