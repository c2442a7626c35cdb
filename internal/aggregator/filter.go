// Package aggregator computes the summary tables behind every scrim view:
// map win rates, round insights, composition win rates and agent stats.
// All functions are pure: inputs are never modified.
package aggregator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pable/go-scrim-metrics/internal/model"
)

// AllMaps is the map selection that disables map filtering.
const AllMaps = "All"

// ErrDateOutOfRange is returned by Filter.Validate when a date bound is not
// one of the dates present in the table.
var ErrDateOutOfRange = errors.New("date bound not present in table")

// Filter is the request-scoped selection applied before aggregation.
// Start and End are inclusive ISO dates; empty means unbounded.
type Filter struct {
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Map    string `json:"map,omitempty"`
	Player string `json:"player,omitempty"`
}

// Validate checks that both bounds are dates the table actually contains and
// that Start does not come after End.
func (f Filter) Validate(t *model.CleanedTable) error {
	known := t.Dates()
	for _, b := range []string{f.Start, f.End} {
		if b == "" {
			continue
		}
		if _, ok := slices.BinarySearch(known, b); !ok {
			return fmt.Errorf("%w: %s", ErrDateOutOfRange, b)
		}
	}
	if f.Start != "" && f.End != "" && f.Start > f.End {
		return fmt.Errorf("start %s is after end %s", f.Start, f.End)
	}
	return nil
}

// InRange reports whether an ISO date falls within [Start, End]. Undated
// values only pass when no bound is set.
func (f Filter) InRange(date string) bool {
	if date == "" {
		return f.Start == "" && f.End == ""
	}
	if f.Start != "" && date < f.Start {
		return false
	}
	if f.End != "" && date > f.End {
		return false
	}
	return true
}

// MatchesMap reports whether m passes the map selection.
func (f Filter) MatchesMap(m string) bool {
	if f.allMaps() {
		return true
	}
	return sameLabel(m, f.Map)
}

func (f Filter) allMaps() bool {
	sel := strings.TrimSpace(f.Map)
	return sel == "" || strings.EqualFold(sel, AllMaps)
}

// records returns the table rows passing the date range, and the map
// selection when the table has a map column.
func (f Filter) records(t *model.CleanedTable, caps Capabilities) []model.MatchRecord {
	if t == nil {
		return nil
	}
	var out []model.MatchRecord
	for _, r := range t.Records {
		if !f.InRange(r.Date) {
			continue
		}
		if caps.Map >= 0 && !f.MatchesMap(r.Cell(caps.Map)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func sameLabel(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func label(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func orEmpty(t *model.CleanedTable) *model.CleanedTable {
	if t == nil {
		return &model.CleanedTable{}
	}
	return t
}
