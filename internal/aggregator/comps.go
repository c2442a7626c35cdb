package aggregator

import (
	"slices"
	"sort"
	"strings"

	"github.com/pable/go-scrim-metrics/internal/model"
)

// DefaultTopCompositions is how many ranked compositions are kept.
const DefaultTopCompositions = 15

// Blocks partitions roster rows into consecutive groups of five and returns
// the groups whose rows all agree on map and result. A trailing partial
// group is dropped. Agents are sorted within each record.
func Blocks(rows []model.RosterRow) []model.CompositionRecord {
	var out []model.CompositionRecord
	for i := 0; i+model.CompositionSize <= len(rows); i += model.CompositionSize {
		block := rows[i : i+model.CompositionSize]
		if !uniform(block) {
			continue
		}
		agents := make([]string, 0, model.CompositionSize)
		for _, r := range block {
			agents = append(agents, strings.TrimSpace(r.Agent))
		}
		slices.Sort(agents)
		out = append(out, model.CompositionRecord{
			Map:     strings.TrimSpace(block[0].Map),
			Outcome: model.ParseOutcome(block[0].Result),
			Agents:  agents,
		})
	}
	return out
}

func uniform(block []model.RosterRow) bool {
	m, res := block[0].Map, block[0].Result
	for _, r := range block[1:] {
		if !sameLabel(r.Map, m) || !sameLabel(r.Result, res) {
			return false
		}
	}
	return true
}

// CompositionMaps lists the distinct maps that have at least one valid block.
func CompositionMaps(rows []model.RosterRow) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range Blocks(rows) {
		if k := label(b.Map); !seen[k] {
			seen[k] = true
			out = append(out, b.Map)
		}
	}
	sort.Strings(out)
	return out
}

// Compositions ranks five-agent compositions by win rate. A block counts only
// when the match table, restricted by f, holds at least one row with the same
// map and outcome; compositions with no corroborated block are absent from
// the result. At most top rows are returned (DefaultTopCompositions when
// top <= 0).
func Compositions(roster []model.RosterRow, t *model.CleanedTable, f Filter, top int) ([]model.CompositionSummary, error) {
	t = orEmpty(t)
	if top <= 0 {
		top = DefaultTopCompositions
	}
	caps := Detect(t.Header)
	if !caps.HasMap() {
		return nil, &model.MissingColumnWarning{Metric: "compositions", Column: MapColumns[0]}
	}
	if !caps.HasOutcome() {
		return nil, &model.MissingColumnWarning{Metric: "compositions", Column: OutcomeColumns[0]}
	}

	type pair struct{ m, o string }
	played := make(map[pair]bool)
	for _, r := range f.records(t, caps) {
		played[pair{label(r.Cell(caps.Map)), label(r.Cell(caps.Outcome))}] = true
	}

	byKey := make(map[string]*model.CompositionSummary)
	for _, b := range Blocks(roster) {
		if !f.MatchesMap(b.Map) || b.Outcome == model.OutcomeUnknown {
			continue
		}
		if !played[pair{label(b.Map), label(b.Outcome.String())}] {
			continue
		}
		key := b.Key()
		cs, ok := byKey[key]
		if !ok {
			cs = &model.CompositionSummary{SummaryRow: model.SummaryRow{Key: key}, Agents: b.Agents}
			byKey[key] = cs
		}
		cs.Add(b.Outcome)
	}

	rows := make([]model.CompositionSummary, 0, len(byKey))
	for _, cs := range byKey {
		rows = append(rows, *cs)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rankLess(rows[i].SummaryRow, rows[j].SummaryRow)
	})
	if len(rows) > top {
		rows = rows[:top]
	}
	return rows, nil
}
