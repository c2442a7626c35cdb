package aggregator

import (
	"math"
	"sort"
	"strings"

	"github.com/pable/go-scrim-metrics/internal/model"
)

// MapSummary counts games, wins, draws and losses per map for the records
// passing f, sorted by map name. Outcomes other than win/draw/loss are not
// counted as games.
func MapSummary(t *model.CleanedTable, f Filter) ([]model.SummaryRow, error) {
	t = orEmpty(t)
	caps := Detect(t.Header)
	if !caps.HasMap() {
		return nil, &model.MissingColumnWarning{Metric: "map summary", Column: MapColumns[0]}
	}
	if !caps.HasOutcome() {
		return nil, &model.MissingColumnWarning{Metric: "map summary", Column: OutcomeColumns[0]}
	}

	g := newGrouper[model.SummaryRow]()
	for _, r := range f.records(t, caps) {
		m := strings.TrimSpace(r.Cell(caps.Map))
		if model.IsEmptyCell(m) {
			continue
		}
		row := g.get(m, func() *model.SummaryRow { return &model.SummaryRow{Key: m} })
		row.Add(model.ParseOutcome(r.Cell(caps.Outcome)))
	}

	out := make([]model.SummaryRow, 0, len(g.order))
	for _, row := range g.sorted() {
		out = append(out, *row)
	}
	return out, nil
}

// RankByWinRate returns a copy of rows ordered by win rate descending, then
// games descending, then key. Rows without games sort last.
func RankByWinRate(rows []model.SummaryRow) []model.SummaryRow {
	out := append([]model.SummaryRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return rankLess(out[i], out[j])
	})
	return out
}

func rankLess(a, b model.SummaryRow) bool {
	wa, wb := a.WinRate(), b.WinRate()
	switch {
	case math.IsNaN(wa) != math.IsNaN(wb):
		return !math.IsNaN(wa)
	case !math.IsNaN(wa) && wa != wb:
		return wa > wb
	case a.Games != b.Games:
		return a.Games > b.Games
	default:
		return a.Key < b.Key
	}
}

// grouper keeps one accumulator per case-insensitive key, remembering the
// first spelling seen.
type grouper[T any] struct {
	byKey map[string]*T
	order []string
	names map[string]string
}

func newGrouper[T any]() *grouper[T] {
	return &grouper[T]{byKey: make(map[string]*T), names: make(map[string]string)}
}

func (g *grouper[T]) get(name string, init func() *T) *T {
	k := label(name)
	if v, ok := g.byKey[k]; ok {
		return v
	}
	v := init()
	g.byKey[k] = v
	g.names[k] = name
	g.order = append(g.order, k)
	return v
}

// sorted returns the accumulators ordered by display name.
func (g *grouper[T]) sorted() []*T {
	keys := append([]string(nil), g.order...)
	sort.Slice(keys, func(i, j int) bool { return g.names[keys[i]] < g.names[keys[j]] })
	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.byKey[k])
	}
	return out
}
