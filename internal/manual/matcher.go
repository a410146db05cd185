// Package manual matches the tail of the totals history against a hand-curated
// table of total sequences.
package manual

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/taixiu/internal/domain"
)

// Pattern is one table entry.
type Pattern struct {
	Totals     []int         `yaml:"totals" json:"totals"`
	Prediction domain.Symbol `yaml:"prediction" json:"prediction"`
	Note       string        `yaml:"note" json:"note"`
}

func (p Pattern) clone() Pattern {
	p.Totals = append([]int(nil), p.Totals...)
	return p
}

// Match is a successful lookup.
type Match struct {
	Pattern    []int         `json:"pattern"`
	Prediction domain.Symbol `json:"prediction"`
	Note       string        `json:"note"`
}

// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	version  string
	patterns []Pattern
}

// NewMatcher returns a matcher over the built-in table.
func NewMatcher() *Matcher {
	return &Matcher{version: TableVersion, patterns: Builtin()}
}

// NewMatcherFrom returns a matcher over the given patterns. Entries without totals
// or with totals outside 3..18 are rejected.
func NewMatcherFrom(version string, patterns []Pattern) (*Matcher, error) {
	out := make([]Pattern, 0, len(patterns))
	for i, p := range patterns {
		if len(p.Totals) == 0 {
			return nil, fmt.Errorf("manual pattern %d: empty totals", i)
		}
		for _, t := range p.Totals {
			if t < 3 || t > 18 {
				return nil, fmt.Errorf("manual pattern %d: total %d out of range 3..18", i, t)
			}
		}
		out = append(out, p.clone())
	}
	return &Matcher{version: version, patterns: out}, nil
}

type tableFile struct {
	Version  string    `yaml:"version"`
	Patterns []Pattern `yaml:"patterns"`
}

// LoadFile reads a YAML pattern table:
//
//	version: totals-local-1
//	patterns:
//	  - totals: [9, 12, 9]
//	    prediction: Tài
//	    note: mirror
func LoadFile(path string) (*Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manual patterns: %w", err)
	}
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse manual patterns: %w", err)
	}
	if f.Version == "" {
		f.Version = "custom"
	}
	return NewMatcherFrom(f.Version, f.Patterns)
}

// Version returns the table version.
func (m *Matcher) Version() string { return m.version }

// Len returns the number of patterns.
func (m *Matcher) Len() int { return len(m.patterns) }

// Match returns the first pattern whose totals equal the tail of totals, or nil.
func (m *Matcher) Match(totals []int) *Match {
	for _, p := range m.patterns {
		if hasSuffix(totals, p.Totals) {
			return &Match{Pattern: append([]int(nil), p.Totals...), Prediction: p.Prediction, Note: p.Note}
		}
	}
	return nil
}

func hasSuffix(totals, pattern []int) bool {
	if len(pattern) == 0 || len(pattern) > len(totals) {
		return false
	}
	off := len(totals) - len(pattern)
	for i, v := range pattern {
		if totals[off+i] != v {
			return false
		}
	}
	return true
}
