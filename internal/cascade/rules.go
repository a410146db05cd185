package cascade

import (
	"fmt"
	"math"

	"github.com/sawpanic/taixiu/internal/domain"
)

const (
	shortStreak = 3
	longStreak  = 5
)

// Streak-break dice: a Tai streak is expected to break once a 1 shows, a Xiu
// streak once a 6 shows.
var breakDie = map[domain.Symbol]int{domain.Tai: 1, domain.Xiu: 6}

// tripleCalls maps a triple's face to the call that follows it. A triple four
// follows the active streak instead (see ruleTriple).
var tripleCalls = map[int]domain.Symbol{
	1: domain.Tai,
	2: domain.Tai,
	3: domain.Tai,
	5: domain.Xiu,
	6: domain.Xiu,
}

func standardRules() []rule {
	return []rule{
		{"pattern_memory", rulePatternMemory},
		{"error_memory", ruleErrorMemory},
		{"miss_streak", ruleMissStreak},
		{"balanced_turn", ruleBalancedTurn},
		{"opening", ruleOpening},
		{"double_run", ruleDoubleRun},
		{"repeated_total", ruleRepeatedTotal},
		{"triple", ruleTriple},
		{"streak", ruleStreak},
		{"cadence", ruleCadence},
		{"block_alternation", ruleBlockAlternation},
		{"recent_misses", ruleRecentMisses},
		{"imbalance", ruleImbalance},
		{"follow", ruleFollow},
	}
}

func rulePatternMemory(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	key, stat, ok := in.Patterns.Best(seq, c.cfg.MemoryMinCount, c.cfg.MemoryMinAcc)
	if !ok {
		return Result{}, false
	}
	acc := stat.Accuracy()
	return Result{
		Prediction: stat.NextPred,
		Score:      min(100, 90+int(math.Floor(10*acc))),
		Reason:     fmt.Sprintf("learned pattern %s -> %s (%d seen, %.0f%% right)", key, stat.NextPred, stat.Count, acc*100),
	}, true
}

func ruleErrorMemory(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	key := ErrorKey(seq)
	if n := in.Errors.Misses(key); n >= 2 {
		return Result{Prediction: reversal(seq), Score: 89, Reason: fmt.Sprintf("suffix %s missed %d times in a row, reversing", key, n)}, true
	}
	return Result{}, false
}

func ruleMissStreak(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	if in.Misses < 4 || len(seq) == 0 {
		return Result{}, false
	}
	return Result{Prediction: reversal(seq), Score: 87, Reason: fmt.Sprintf("%d consecutive misses, reversing", in.Misses)}, true
}

// ruleBalancedTurn: the last five are as even as five can be and the last two
// differ. Every five-symbol zigzag also satisfies that, so a clean alternation is
// skipped here; otherwise the 1-1 cadence, whose call depends on whether the
// session is five or six rounds old, could never fire.
func ruleBalancedTurn(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	if len(seq) < 5 {
		return Result{}, false
	}
	tail := seq.Tail(5)
	diff := tail.Count(domain.Tai) - tail.Count(domain.Xiu)
	if diff < -1 || diff > 1 || tail[3] == tail[4] || isAlternating(tail) {
		return Result{}, false
	}
	return Result{Prediction: reversal(seq), Score: 88, Reason: "balanced last five with a fresh turn, reversing"}, true
}

// ruleOpening decides the first calls from the latest total.
func ruleOpening(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	if len(seq) >= 2 {
		return Result{}, false
	}
	total, ok := currentTotal(in)
	if !ok {
		return Result{}, false
	}
	switch {
	case total >= c.cfg.HighTotal:
		return Result{Prediction: domain.Tai, Score: 98, Reason: fmt.Sprintf("opening total %d is high", total)}, true
	case total <= c.cfg.LowTotal:
		return Result{Prediction: domain.Xiu, Score: 98, Reason: fmt.Sprintf("opening total %d is low", total)}, true
	case len(seq) == 0:
		sym := domain.Xiu
		if total >= 11 {
			sym = domain.Tai
		}
		return Result{Prediction: sym, Score: 80, Reason: fmt.Sprintf("opening total %d read against 11", total)}, true
	}
	return Result{Prediction: reversal(seq), Score: 75, Reason: fmt.Sprintf("second round after middling total %d, reversing", total)}, true
}

// ruleDoubleRun spots n of one side followed by n of the other (n = 4..6) and calls
// the start of the next block.
func ruleDoubleRun(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	for n := 4; n <= 6; n++ {
		if first, ok := blockPair(seq, n); ok {
			return Result{Prediction: first, Score: 90, Reason: fmt.Sprintf("double run %d-%d, next block %s", n, n, first)}, true
		}
	}
	return Result{}, false
}

func ruleRepeatedTotal(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	totals := in.Totals
	if len(totals) > c.cfg.TotalsWindow {
		totals = totals[len(totals)-c.cfg.TotalsWindow:]
	}
	n := len(totals)
	if n >= 3 && totals[n-1] == totals[n-2] && totals[n-2] == totals[n-3] {
		sym := byParity(totals[n-1])
		return Result{Prediction: sym, Score: 96, Reason: fmt.Sprintf("total %d three times, parity says %s", totals[n-1], sym)}, true
	}
	if n >= 2 && totals[n-1] == totals[n-2] {
		sym := byParity(totals[n-1])
		return Result{Prediction: sym, Score: 94, Reason: fmt.Sprintf("total %d twice, parity says %s", totals[n-1], sym)}, true
	}
	return Result{}, false
}

func ruleTriple(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	face, ok := domain.Round{Dice: in.Dice}.Triple()
	if !ok {
		return Result{}, false
	}
	if sym, mapped := tripleCalls[face]; mapped {
		return Result{Prediction: sym, Score: 97, Reason: fmt.Sprintf("triple %d", face)}, true
	}
	sym, run := seq.Run()
	if run >= shortStreak {
		return Result{Prediction: sym, Score: 97, Reason: fmt.Sprintf("triple %d inside a %d-streak, holding", face, run)}, true
	}
	return Result{Prediction: domain.Xiu, Score: 97, Reason: fmt.Sprintf("triple %d", face)}, true
}

// ruleStreak holds streaks of three or more. Past five it tries one tentative break
// per streak unless the break die has shown, which forces the break.
func ruleStreak(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	sym, run := seq.Run()
	if run < shortStreak {
		return Result{}, false
	}
	if run >= longStreak {
		flag := in.Flags.flagFor(sym)
		if (domain.Round{Dice: in.Dice}).ShowsDie(breakDie[sym]) {
			*flag = false
			return Result{Prediction: sym.Opposite(), Score: 95, Reason: fmt.Sprintf("%d-streak of %s and a %d showed, breaking", run, sym, breakDie[sym])}, true
		}
		if !*flag {
			*flag = true
			return Result{Prediction: sym.Opposite(), Score: 80, Reason: fmt.Sprintf("%d-streak of %s, trying a break", run, sym)}, true
		}
		return Result{Prediction: sym, Score: 90, Reason: fmt.Sprintf("%d-streak of %s survived a break attempt, holding", run, sym)}, true
	}
	return Result{Prediction: sym, Score: 93, Reason: fmt.Sprintf("holding %d-streak of %s", run, sym)}, true
}

func ruleCadence(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	for _, cad := range c.cfg.Cadences {
		for _, suffix := range cad.Suffixes {
			if !seq.HasSuffix(suffix) {
				continue
			}
			if cad.Name == "1-1" && len(suffix) == 4 {
				switch len(seq) {
				case 5:
					return Result{Prediction: reversal(seq), Score: 90, Reason: "1-1 cadence opening, following the swing"}, true
				case 6:
					last, _ := seq.Last()
					return Result{Prediction: last, Score: 88, Reason: "1-1 cadence at six rounds, expecting it to stall"}, true
				}
			}
			return Result{Prediction: reversal(seq), Score: 90, Reason: fmt.Sprintf("cadence %s (%s), reversing", cad.Name, suffix)}, true
		}
	}
	return Result{}, false
}

// ruleBlockAlternation covers n-n blocks for n = 2..5.
func ruleBlockAlternation(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	for n := 2; n <= 5; n++ {
		if _, ok := blockPair(seq, n); ok {
			return Result{Prediction: reversal(seq), Score: 90, Reason: fmt.Sprintf("%dx%d block alternation, reversing", n, n)}, true
		}
	}
	return Result{}, false
}

func ruleRecentMisses(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	if len(seq) == 0 {
		return Result{}, false
	}
	if in.Misses >= 3 {
		return Result{Prediction: reversal(seq), Score: 88, Reason: fmt.Sprintf("%d misses running, reversing", in.Misses)}, true
	}
	if key := ErrorKey(seq); in.Errors.Misses(key) > 0 {
		return Result{Prediction: reversal(seq), Score: 86, Reason: fmt.Sprintf("suffix %s was a recent miss, reversing", key)}, true
	}
	return Result{}, false
}

func ruleImbalance(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	tai, xiu := seq.Count(domain.Tai), seq.Count(domain.Xiu)
	switch {
	case tai-xiu >= 3:
		return Result{Prediction: domain.Tai, Score: 84, Reason: fmt.Sprintf("Tài leads %d-%d, following the majority", tai, xiu)}, true
	case xiu-tai >= 3:
		return Result{Prediction: domain.Xiu, Score: 84, Reason: fmt.Sprintf("Xỉu leads %d-%d, following the majority", xiu, tai)}, true
	}
	return Result{}, false
}

func ruleFollow(c *Cascade, in *Input, seq domain.Sequence) (Result, bool) {
	last, ok := seq.Last()
	if !ok {
		return Result{}, false
	}
	return Result{Prediction: last, Score: 72, Reason: fmt.Sprintf("no strong signal, following %s", last)}, true
}

// blockPair reports whether seq ends with n of one side followed by n of the other,
// returning the side of the first block.
func blockPair(seq domain.Sequence, n int) (domain.Symbol, bool) {
	if len(seq) < 2*n {
		return 0, false
	}
	tail := seq.Tail(2 * n)
	first, second := tail[0], tail[n]
	if first == second {
		return 0, false
	}
	for i := 0; i < n; i++ {
		if tail[i] != first || tail[n+i] != second {
			return 0, false
		}
	}
	return first, true
}

func isAlternating(seq domain.Sequence) bool {
	for i := 1; i < len(seq); i++ {
		if seq[i] == seq[i-1] {
			return false
		}
	}
	return true
}

// byParity calls odd totals Tai and even totals Xiu.
func byParity(total int) domain.Symbol {
	if total%2 != 0 {
		return domain.Tai
	}
	return domain.Xiu
}

// currentTotal is the latest round's total, from its dice when present.
func currentTotal(in *Input) (int, bool) {
	if r := (domain.Round{Dice: in.Dice}); r.HasDice() {
		return r.Normalize().Total, true
	}
	if len(in.Totals) > 0 {
		return in.Totals[len(in.Totals)-1], true
	}
	return 0, false
}
