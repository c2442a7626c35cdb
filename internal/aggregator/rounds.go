package aggregator

import (
	"math"
	"sort"
	"strings"

	"github.com/pable/go-scrim-metrics/internal/model"
)

// SideRates holds the attack and defence half win rates derived for one
// match from its starting side. NaN marks an undefined rate.
type SideRates struct {
	Attack  float64
	Defence float64
}

// DeriveSideRates picks the half win rate played on each side. The first
// half is played on the starting side. Any missing input leaves both rates
// undefined. Values are returned as written in the sheet.
func DeriveSideRates(r model.MatchRecord, caps Capabilities) SideRates {
	undefined := SideRates{Attack: math.NaN(), Defence: math.NaN()}
	if !caps.HasSides() {
		return undefined
	}
	first, ok1 := model.ParseNumber(r.Cell(caps.FirstHalf))
	second, ok2 := model.ParseNumber(r.Cell(caps.SecondHalf))
	if !ok1 || !ok2 {
		return undefined
	}
	switch model.ParseSide(r.Cell(caps.Start)) {
	case model.SideAttack:
		return SideRates{Attack: first, Defence: second}
	case model.SideDefence:
		return SideRates{Attack: second, Defence: first}
	default:
		return undefined
	}
}

// RoundInsights builds the per-map round table for the records passing f,
// sorted by map. Each optional metric is computed only when the table has
// its columns; the returned warnings name the metrics that were skipped.
// Rates are in percentage points.
func RoundInsights(t *model.CleanedTable, f Filter) ([]model.RoundSummary, []*model.MissingColumnWarning, error) {
	t = orEmpty(t)
	caps := Detect(t.Header)
	if !caps.HasMap() {
		return nil, nil, &model.MissingColumnWarning{Metric: "round insights", Column: MapColumns[0]}
	}
	recs := f.records(t, caps)

	// Column-level scale: a column whose values never exceed 1 holds fractions.
	atkScale, defScale := 1.0, 1.0
	sides := make([]SideRates, len(recs))
	if caps.HasSides() {
		var atk, def []float64
		for i, r := range recs {
			sides[i] = DeriveSideRates(r, caps)
			atk = append(atk, sides[i].Attack)
			def = append(def, sides[i].Defence)
		}
		atkScale, defScale = percentScale(atk), percentScale(def)
	}
	ppScale := columnScale(recs, caps.PostPlant)
	rtScale := columnScale(recs, caps.Retake)

	type acc struct {
		row                  model.RoundSummary
		matches              int
		atk, def, pp, retake mean
	}
	g := newGrouper[acc]()
	for i, r := range recs {
		m := strings.TrimSpace(r.Cell(caps.Map))
		if model.IsEmptyCell(m) {
			continue
		}
		a := g.get(m, func() *acc { return &acc{row: model.RoundSummary{SummaryRow: model.SummaryRow{Key: m}}} })
		a.matches++
		if caps.HasOutcome() {
			a.row.Add(model.ParseOutcome(r.Cell(caps.Outcome)))
		}
		if caps.HasSides() {
			a.atk.add(sides[i].Attack * atkScale)
			a.def.add(sides[i].Defence * defScale)
		}
		if caps.HasPostPlant() {
			if v, ok := model.ParseNumber(r.Cell(caps.PostPlant)); ok {
				a.pp.add(v * ppScale)
			}
		}
		if caps.HasRetake() {
			if v, ok := model.ParseNumber(r.Cell(caps.Retake)); ok {
				a.retake.add(v * rtScale)
			}
		}
		if caps.HasPistol() {
			if model.ParseFlag(r.Cell(caps.Pistol1)) {
				a.row.PistolWins++
			}
			if model.ParseFlag(r.Cell(caps.Pistol2)) {
				a.row.PistolWins++
			}
		}
	}

	var out []model.RoundSummary
	for _, a := range g.sorted() {
		row := a.row
		row.AvgAtkWR, row.AvgDefWR, row.RoundWR = math.NaN(), math.NaN(), math.NaN()
		row.PostPlant, row.Retake, row.PistolWR = math.NaN(), math.NaN(), math.NaN()

		if row.HasSides = caps.HasSides(); row.HasSides {
			row.AvgAtkWR, row.AvgDefWR = a.atk.value(), a.def.value()
			if !math.IsNaN(row.AvgAtkWR) && !math.IsNaN(row.AvgDefWR) {
				row.RoundWR = (row.AvgAtkWR + row.AvgDefWR) / 2
			}
		}
		if row.HasPostPlant = caps.HasPostPlant(); row.HasPostPlant {
			row.PostPlant = a.pp.value()
		}
		if row.HasRetake = caps.HasRetake(); row.HasRetake {
			row.Retake = a.retake.value()
		}
		if row.HasPistol = caps.HasPistol(); row.HasPistol && a.matches > 0 {
			row.PistolWR = float64(row.PistolWins) / float64(2*a.matches) * 100
		}
		out = append(out, row)
	}
	return out, caps.Warnings(), nil
}

// RoundSortKey selects the column SortRounds orders by.
type RoundSortKey string

const (
	SortByMap       RoundSortKey = "map"
	SortByWinRate   RoundSortKey = "winrate"
	SortByRoundWR   RoundSortKey = "roundwr"
	SortByPostPlant RoundSortKey = "postplant"
	SortByRetake    RoundSortKey = "retake"
	SortByPistol    RoundSortKey = "pistol"
)

// ParseRoundSortKey maps user text to a sort key; unknown text sorts by map.
func ParseRoundSortKey(s string) RoundSortKey {
	switch k := RoundSortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortByWinRate, SortByRoundWR, SortByPostPlant, SortByRetake, SortByPistol:
		return k
	default:
		return SortByMap
	}
}

// SortRounds returns a copy of rows ordered by key. Undefined values always
// sort last; ties fall back to the map name.
func SortRounds(rows []model.RoundSummary, key RoundSortKey, desc bool) []model.RoundSummary {
	out := append([]model.RoundSummary(nil), rows...)
	value := func(r model.RoundSummary) float64 {
		switch key {
		case SortByWinRate:
			return r.WinRate()
		case SortByRoundWR:
			return r.RoundWR
		case SortByPostPlant:
			return r.PostPlant
		case SortByRetake:
			return r.Retake
		case SortByPistol:
			return r.PistolWR
		}
		return math.NaN()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if key == SortByMap {
			if desc {
				return out[i].Key > out[j].Key
			}
			return out[i].Key < out[j].Key
		}
		vi, vj := value(out[i]), value(out[j])
		switch {
		case math.IsNaN(vi) != math.IsNaN(vj):
			return !math.IsNaN(vi)
		case !math.IsNaN(vi) && vi != vj:
			if desc {
				return vi > vj
			}
			return vi < vj
		default:
			return out[i].Key < out[j].Key
		}
	})
	return out
}

// mean is a running average that ignores NaN.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	m.sum += v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return math.NaN()
	}
	return m.sum / float64(m.n)
}

func columnScale(recs []model.MatchRecord, idx int) float64 {
	if idx < 0 {
		return 1
	}
	vals := make([]float64, 0, len(recs))
	for _, r := range recs {
		if v, ok := model.ParseNumber(r.Cell(idx)); ok {
			vals = append(vals, v)
		}
	}
	return percentScale(vals)
}

// percentScale returns 100 when every defined value lies at or below 1,
// meaning the column holds fractions, and 1 otherwise.
func percentScale(vals []float64) float64 {
	maxV, seen := math.Inf(-1), false
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		seen = true
		maxV = math.Max(maxV, v)
	}
	if seen && maxV <= 1 {
		return 100
	}
	return 1
}
