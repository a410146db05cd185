package ingest

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/sawpanic/taixiu/internal/domain"
)

// ErrNoRounds is returned when a payload parses but carries no usable round.
var ErrNoRounds = errors.New("no rounds in payload")

// Field aliases seen across feeds, tried in order.
var (
	idKeys     = []string{"phien", "Phien", "session", "sessionId", "id"}
	totalKeys  = []string{"tong", "Tong", "total", "sum"}
	resultKeys = []string{"ket_qua", "Ket_qua", "result"}
	wrapKeys   = []string{"data", "list", "items"}
	diceKeys   = [][3]string{
		{"xuc_xac_1", "xuc_xac_2", "xuc_xac_3"},
		{"Xuc_xac_1", "Xuc_xac_2", "Xuc_xac_3"},
		{"d1", "d2", "d3"},
	}
)

// Normalize parses a feed payload shaped as a single round object, an array of
// rounds, or an object wrapping either under data, list or items. Rounds are
// returned in ascending id order.
func Normalize(body []byte) ([]domain.Round, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON payload")
	}
	root := gjson.ParseBytes(body)
	if root.IsObject() {
		for _, k := range wrapKeys {
			if v := root.Get(k); v.IsArray() || v.IsObject() {
				root = v
				break
			}
		}
	}

	var items []gjson.Result
	switch {
	case root.IsArray():
		items = root.Array()
	case root.IsObject():
		items = []gjson.Result{root}
	default:
		return nil, ErrNoRounds
	}

	rounds := make([]domain.Round, 0, len(items))
	for _, it := range items {
		if r, ok := parseRound(it); ok {
			rounds = append(rounds, r)
		}
	}
	if len(rounds) == 0 {
		return nil, ErrNoRounds
	}
	sort.SliceStable(rounds, func(i, j int) bool { return rounds[i].ID < rounds[j].ID })
	return rounds, nil
}

func parseRound(it gjson.Result) (domain.Round, bool) {
	if !it.IsObject() {
		return domain.Round{}, false
	}
	var r domain.Round
	if v, ok := first(it, idKeys); ok {
		r.ID = v.Int()
	}
	if v, ok := first(it, totalKeys); ok {
		r.Total = int(v.Int())
	}
	if v, ok := first(it, resultKeys); ok {
		r.Result = v.String()
	}
	r.Dice = parseDice(it)
	r = r.Normalize()

	if r.ID <= 0 && r.Result == "" {
		return domain.Round{}, false
	}
	if r.Result == "" && r.Total > 0 {
		r.Result = domain.FromTotal(r.Total).String()
	}
	return r, true
}

func parseDice(it gjson.Result) []int {
	if arr := it.Get("dice"); arr.IsArray() {
		vals := arr.Array()
		if len(vals) == 3 {
			return []int{int(vals[0].Int()), int(vals[1].Int()), int(vals[2].Int())}
		}
	}
	for _, keys := range diceKeys {
		a, b, c := it.Get(keys[0]), it.Get(keys[1]), it.Get(keys[2])
		if a.Exists() && b.Exists() && c.Exists() {
			return []int{int(a.Int()), int(b.Int()), int(c.Int())}
		}
	}
	return nil
}

func first(it gjson.Result, keys []string) (gjson.Result, bool) {
	for _, k := range keys {
		if v := it.Get(k); v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}
