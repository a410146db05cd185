package cascade

// TemplateVersion identifies the cadence dictionary below. Bump it whenever an
// entry changes so stored pattern statistics can be compared across releases.
const TemplateVersion = "cadence-v3"

// Cadence is a named rhythm of block lengths with the literal T/X tails that
// realise it. A matching tail predicts the end of the current block.
type Cadence struct {
	Name     string
	Suffixes []string
}

// Cadences only end in blocks of one or two: tails ending in a run of three or more
// are claimed by the streak rule first.
var defaultCadences = []Cadence{
	{Name: "1-1", Suffixes: []string{"TXTX", "XTXT"}},
	{Name: "2-2", Suffixes: []string{"TTXXTT", "XXTTXX"}},
	{Name: "1-2", Suffixes: []string{"TXXTXX", "XTTXTT"}},
	{Name: "2-1", Suffixes: []string{"TTXTTX", "XXTXXT"}},
	{Name: "3-1", Suffixes: []string{"TTTXTTTX", "XXXTXXXT", "TTTX", "XXXT"}},
	{Name: "1-2-1", Suffixes: []string{"TXXT", "XTTX"}},
	{Name: "2-1-2", Suffixes: []string{"TTXTT", "XXTXX"}},
	{Name: "3-2-1", Suffixes: []string{"TTTXXT", "XXXTTX"}},
	{Name: "1-3-1", Suffixes: []string{"TXXXT", "XTTTX"}},
	{Name: "2-3-2", Suffixes: []string{"TTXXXTT", "XXTTTXX"}},
}

// DefaultCadences returns a copy of the built-in dictionary.
func DefaultCadences() []Cadence {
	out := make([]Cadence, len(defaultCadences))
	for i, c := range defaultCadences {
		out[i] = Cadence{Name: c.Name, Suffixes: append([]string(nil), c.Suffixes...)}
	}
	return out
}
