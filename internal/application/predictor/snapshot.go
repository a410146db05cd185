package predictor

import (
	"fmt"
	"time"

	"github.com/sawpanic/taixiu/internal/cascade"
	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/ensemble"
	"github.com/sawpanic/taixiu/internal/regime"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

// Snapshot is the full learnable state of a session.
type Snapshot struct {
	Version     int                            `json:"version"`
	SavedAt     time.Time                      `json:"saved_at"`
	Rounds      []domain.Round                 `json:"rounds"`
	Ensemble    ensemble.State                 `json:"ensemble"`
	Patterns    map[string]cascade.PatternStat `json:"patterns"`
	Errors      map[string]int                 `json:"errors"`
	Flags       cascade.SessionFlags           `json:"flags"`
	Misses      int                            `json:"misses"`
	Settled     int                            `json:"settled"`
	Hits        int                            `json:"hits"`
	CascadeHits int                            `json:"cascade_hits"`
}

// Snapshot exports the session state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Version:     SnapshotVersion,
		SavedAt:     s.now().UTC(),
		Rounds:      s.history.Rounds(),
		Ensemble:    s.ens.State(),
		Patterns:    s.patterns.Entries(),
		Errors:      s.errors.Entries(),
		Flags:       s.flags,
		Misses:      s.misses,
		Settled:     s.settled,
		Hits:        s.hits,
		CascadeHits: s.cascadeHits,
	}
}

// Restore replaces the session state with snap. On error the session is unchanged.
func (s *Service) Restore(snap Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	ens := ensemble.New(s.cfg.Ensemble)
	if err := ens.SetState(snap.Ensemble); err != nil {
		return fmt.Errorf("restore ensemble: %w", err)
	}
	history := domain.NewHistory(s.cfg.HistorySize)
	for _, r := range snap.Rounds {
		history.Append(r)
	}
	patterns := cascade.NewPatternMemory(s.cfg.PatternMinLen, s.cfg.PatternMaxLen, s.cfg.PatternCapacity)
	patterns.Load(snap.Patterns)
	errs := cascade.NewErrorMemory()
	errs.Load(snap.Errors)

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := history.Sequence()
	ens.TrainAll(seq)
	s.history = history
	s.ens = ens
	s.patterns = patterns
	s.errors = errs
	s.flags = snap.Flags
	s.misses = snap.Misses
	s.settled = snap.Settled
	s.hits = snap.Hits
	s.cascadeHits = snap.CascadeHits
	s.road = regime.NewDetectorWithConfig(s.cfg.Road)
	if last, ok := history.Last(); ok {
		s.road.Observe(last.ID, seq)
	}
	return nil
}
