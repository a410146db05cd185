// Package cascade is the ordered rule engine that produces a discrete call with a
// 0-100 score and a reason. The first matching rule wins.
package cascade

import (
	"fmt"

	"github.com/sawpanic/taixiu/internal/domain"
)

// Config holds the cascade's thresholds.
type Config struct {
	Window         int       `yaml:"window"`           // symbols considered per evaluation
	TotalsWindow   int       `yaml:"totals_window"`    // recent totals checked for repeats
	MemoryMinCount int       `yaml:"memory_min_count"` // pattern-memory evidence threshold
	MemoryMinAcc   float64   `yaml:"memory_min_acc"`   // pattern-memory accuracy threshold
	HighTotal      int       `yaml:"high_total"`       // opening total called Tai outright
	LowTotal       int       `yaml:"low_total"`        // opening total called Xiu outright
	Cadences       []Cadence `yaml:"-"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		Window:         50,
		TotalsWindow:   6,
		MemoryMinCount: 3,
		MemoryMinAcc:   0.6,
		HighTotal:      16,
		LowTotal:       6,
		Cadences:       DefaultCadences(),
	}
}

// Input is everything one evaluation may look at. Flags is mutated in place by the
// streak rule; pass a copy to evaluate without committing.
type Input struct {
	Sequence domain.Sequence
	Misses   int // consecutive misses of the published prediction
	Patterns *PatternMemory
	Errors   *ErrorMemory
	Totals   []int // recent totals, oldest first
	Dice     []int // dice of the latest round, nil when unknown
	Flags    *SessionFlags
}

// Result is the cascade's call.
type Result struct {
	Prediction domain.Symbol `json:"prediction"`
	Score      int           `json:"score"`
	Reason     string        `json:"reason"`
	Rule       string        `json:"rule"`
}

type rule struct {
	name string
	eval func(c *Cascade, in *Input, seq domain.Sequence) (Result, bool)
}

// Cascade evaluates the rule table top to bottom.
type Cascade struct {
	cfg   Config
	rules []rule
}

// New returns a cascade with the standard rule table.
func New(cfg Config) *Cascade {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.TotalsWindow <= 0 {
		cfg.TotalsWindow = DefaultConfig().TotalsWindow
	}
	if len(cfg.Cadences) == 0 {
		cfg.Cadences = DefaultCadences()
	}
	return &Cascade{cfg: cfg, rules: standardRules()}
}

// Evaluate runs the rule table. It never panics: any failure yields a Tai call with
// score 50 and the failure in the reason.
func (c *Cascade) Evaluate(in Input) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Prediction: domain.Tai, Score: 50, Reason: fmt.Sprintf("cascade failure: %v", r), Rule: "failure"}
		}
	}()

	seq := in.Sequence.Tail(c.cfg.Window)
	if in.Flags == nil {
		in.Flags = &SessionFlags{}
	}
	resetStaleFlags(in.Flags, seq)

	for _, r := range c.rules {
		if out, ok := r.eval(c, &in, seq); ok {
			out.Rule = r.name
			return out
		}
	}
	return Result{Prediction: domain.Tai, Score: 50, Reason: "no history", Rule: "empty"}
}

// Settle updates pattern and error memory once the outcome after seq is known.
// predicted is the cascade's own call for seq.
func (c *Cascade) Settle(patterns *PatternMemory, errors *ErrorMemory, seq domain.Sequence, predicted, actual domain.Symbol) {
	window := seq.Tail(c.cfg.Window)
	if patterns != nil {
		patterns.Observe(window, actual)
	}
	if errors != nil {
		errors.Record(ErrorKey(window), predicted == actual)
	}
}

// resetStaleFlags clears a broken-streak flag once its long streak has ended.
func resetStaleFlags(flags *SessionFlags, seq domain.Sequence) {
	sym, run := seq.Run()
	if run < longStreak || sym != domain.Tai {
		flags.BrokeStreakTai = false
	}
	if run < longStreak || sym != domain.Xiu {
		flags.BrokeStreakXiu = false
	}
}

func reversal(seq domain.Sequence) domain.Symbol {
	last, _ := seq.Last()
	return last.Opposite()
}
