package manual

import "github.com/sawpanic/taixiu/internal/domain"

// TableVersion identifies the built-in pattern table.
const TableVersion = "totals-v2"

// builtinPatterns is ordered: longer, more specific patterns come first because
// the first match wins.
var builtinPatterns = []Pattern{
	{Totals: []int{3, 18, 3}, Prediction: domain.Tai, Note: "extreme swing 3-18-3"},
	{Totals: []int{18, 3, 18}, Prediction: domain.Xiu, Note: "extreme swing 18-3-18"},
	{Totals: []int{10, 11, 10, 11}, Prediction: domain.Xiu, Note: "edge ladder 10-11 repeating"},
	{Totals: []int{11, 10, 11, 10}, Prediction: domain.Tai, Note: "edge ladder 11-10 repeating"},
	{Totals: []int{4, 5, 6}, Prediction: domain.Tai, Note: "low climb 4-5-6"},
	{Totals: []int{17, 16, 15}, Prediction: domain.Xiu, Note: "high slide 17-16-15"},
	{Totals: []int{9, 12, 9}, Prediction: domain.Tai, Note: "mirror 9-12-9"},
	{Totals: []int{12, 9, 12}, Prediction: domain.Xiu, Note: "mirror 12-9-12"},
	{Totals: []int{7, 14}, Prediction: domain.Tai, Note: "double-up 7-14"},
	{Totals: []int{14, 7}, Prediction: domain.Xiu, Note: "halving 14-7"},
}

// Builtin returns a copy of the built-in table.
func Builtin() []Pattern {
	out := make([]Pattern, len(builtinPatterns))
	for i, p := range builtinPatterns {
		out[i] = p.clone()
	}
	return out
}
