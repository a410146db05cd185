package domain

// Round is one settled play: three dice, their total and the published result label.
// Dice is nil when the feed did not carry them.
type Round struct {
	ID     int64  `json:"id"`
	Dice   []int  `json:"dice,omitempty"`
	Total  int    `json:"total"`
	Result string `json:"result"`
}

// HasDice reports whether all three dice are present and in range.
func (r Round) HasDice() bool {
	if len(r.Dice) != 3 {
		return false
	}
	for _, d := range r.Dice {
		if d < 1 || d > 6 {
			return false
		}
	}
	return true
}

// Normalize fills Total from the dice when the feed omitted it.
func (r Round) Normalize() Round {
	if r.Total == 0 && r.HasDice() {
		r.Total = r.Dice[0] + r.Dice[1] + r.Dice[2]
	}
	return r
}

// Triple returns the repeated value when all three dice match.
func (r Round) Triple() (int, bool) {
	if !r.HasDice() {
		return 0, false
	}
	if r.Dice[0] == r.Dice[1] && r.Dice[1] == r.Dice[2] {
		return r.Dice[0], true
	}
	return 0, false
}

// ShowsDie reports whether any die shows v.
func (r Round) ShowsDie(v int) bool {
	for _, d := range r.Dice {
		if d == v {
			return true
		}
	}
	return false
}
