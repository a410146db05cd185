package cascade

import (
	"github.com/sawpanic/taixiu/internal/domain"
)

// Default suffix bounds and capacity for pattern memory.
const (
	DefaultPatternMinLen   = 3
	DefaultPatternMaxLen   = 8
	DefaultPatternCapacity = 20000
)

// PatternStat tracks how a suffix has resolved. NextPred is the side that has
// followed the suffix most often; Correct counts how many observations agreed
// with it.
type PatternStat struct {
	Count    int           `json:"count"`
	Correct  int           `json:"correct"`
	NextPred domain.Symbol `json:"next_pred"`
}

// Accuracy returns Correct/Count, or 0 for an unseen pattern.
func (s PatternStat) Accuracy() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Count)
}

// PatternMemory maps suffix strings (T/X letters) to their resolution statistics.
// New keys stop being added once capacity is reached; existing keys keep updating.
type PatternMemory struct {
	minLen   int
	maxLen   int
	capacity int
	entries  map[string]PatternStat
}

// NewPatternMemory returns an empty memory observing suffixes of minLen..maxLen.
func NewPatternMemory(minLen, maxLen, capacity int) *PatternMemory {
	if minLen < 1 {
		minLen = DefaultPatternMinLen
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	if capacity <= 0 {
		capacity = DefaultPatternCapacity
	}
	return &PatternMemory{minLen: minLen, maxLen: maxLen, capacity: capacity, entries: make(map[string]PatternStat)}
}

// Len returns the number of stored patterns.
func (m *PatternMemory) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Lookup returns the statistics for one suffix key.
func (m *PatternMemory) Lookup(key string) (PatternStat, bool) {
	if m == nil {
		return PatternStat{}, false
	}
	s, ok := m.entries[key]
	return s, ok
}

// Observe records that actual followed every tracked suffix of seq.
func (m *PatternMemory) Observe(seq domain.Sequence, actual domain.Symbol) {
	letters := seq.String()
	for n := m.minLen; n <= m.maxLen && n <= len(letters); n++ {
		key := letters[len(letters)-n:]
		stat, ok := m.entries[key]
		if !ok {
			if len(m.entries) >= m.capacity {
				continue
			}
			stat = PatternStat{NextPred: actual}
		}
		stat.Count++
		if stat.NextPred == actual {
			stat.Correct++
		} else if 2*stat.Correct < stat.Count {
			// The other side now holds the majority: the misses become the hits.
			stat.NextPred = actual
			stat.Correct = stat.Count - stat.Correct
		}
		m.entries[key] = stat
	}
}

// Best returns the longest suffix of seq whose statistics clear both thresholds.
func (m *PatternMemory) Best(seq domain.Sequence, minCount int, minAccuracy float64) (string, PatternStat, bool) {
	if m == nil {
		return "", PatternStat{}, false
	}
	letters := seq.String()
	for n := min(m.maxLen, len(letters)); n >= m.minLen; n-- {
		key := letters[len(letters)-n:]
		stat, ok := m.entries[key]
		if ok && stat.Count >= minCount && stat.Accuracy() >= minAccuracy {
			return key, stat, true
		}
	}
	return "", PatternStat{}, false
}

// Entries returns a copy of the stored statistics.
func (m *PatternMemory) Entries() map[string]PatternStat {
	out := make(map[string]PatternStat, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Load replaces the stored statistics, dropping keys outside the tracked lengths.
func (m *PatternMemory) Load(entries map[string]PatternStat) {
	m.entries = make(map[string]PatternStat, len(entries))
	for k, v := range entries {
		if len(k) < m.minLen || len(k) > m.maxLen || len(m.entries) >= m.capacity {
			continue
		}
		m.entries[k] = v
	}
}

// ErrorKeyLen is the suffix length ErrorMemory is keyed by.
const ErrorKeyLen = 3

// ErrorMemory counts consecutive cascade misses per 3-symbol suffix.
type ErrorMemory struct {
	misses map[string]int
}

func NewErrorMemory() *ErrorMemory {
	return &ErrorMemory{misses: make(map[string]int)}
}

// ErrorKey returns the error-memory key for seq, or "" when seq is too short.
func ErrorKey(seq domain.Sequence) string {
	if len(seq) < ErrorKeyLen {
		return ""
	}
	return seq.Tail(ErrorKeyLen).String()
}

// Record bumps the miss counter for key on a miss and clears it on a hit.
func (m *ErrorMemory) Record(key string, hit bool) {
	if key == "" {
		return
	}
	if hit {
		delete(m.misses, key)
		return
	}
	m.misses[key]++
}

// Misses returns the consecutive miss count for key.
func (m *ErrorMemory) Misses(key string) int {
	if m == nil || key == "" {
		return 0
	}
	return m.misses[key]
}

// Entries returns a copy of the counters.
func (m *ErrorMemory) Entries() map[string]int {
	out := make(map[string]int, len(m.misses))
	for k, v := range m.misses {
		out[k] = v
	}
	return out
}

// Load replaces the counters.
func (m *ErrorMemory) Load(entries map[string]int) {
	m.misses = make(map[string]int, len(entries))
	for k, v := range entries {
		if v > 0 {
			m.misses[k] = v
		}
	}
}

// SessionFlags remember whether a tentative break of a long streak was already tried.
type SessionFlags struct {
	BrokeStreakTai bool `json:"broke_streak_tai"`
	BrokeStreakXiu bool `json:"broke_streak_xiu"`
}

func (f *SessionFlags) flagFor(sym domain.Symbol) *bool {
	if sym == domain.Tai {
		return &f.BrokeStreakTai
	}
	return &f.BrokeStreakXiu
}
