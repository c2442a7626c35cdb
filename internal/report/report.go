// Package report renders aggregation results as terminal tables.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-scrim-metrics/internal/model"
)

// Win-rate band thresholds in percentage points.
const (
	BandHighAt   = 60.0
	BandLowBelow = 40.0
)

// Band classifies a percentage as "high" (>= 60), "low" (< 40) or "mid".
// Undefined values have no band.
func Band(pct float64) string {
	switch {
	case math.IsNaN(pct):
		return ""
	case pct >= BandHighAt:
		return "high"
	case pct < BandLowBelow:
		return "low"
	default:
		return "mid"
	}
}

// Pct formats a percentage with one decimal, "-" when undefined.
func Pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", v)
}

// Rate formats a [0,1] rate as a percentage, "-" when undefined.
func Rate(r float64) string {
	return Pct(r * 100)
}

// Ratio formats a ratio with two decimals, "-" when undefined.
func Ratio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func signed(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintSheetSummary prints a one-line header for a stored cleaning run.
func PrintSheetSummary(w io.Writer, s model.SheetSummary) {
	fmt.Fprintf(w, "\nSource: %s  |  Dates: %s → %s  |  Matches: %d  |  Skipped: %d  |  Hash: %s\n\n",
		s.Source, s.FirstDate, s.LastDate, s.Records, s.Skipped, shortHash(s.Hash))
}

// PrintSheetList prints every stored run.
func PrintSheetList(w io.Writer, sheets []model.SheetSummary) {
	table := newTable(w)
	table.Header("HASH", "SOURCE", "CLEANED", "FIRST", "LAST", "MATCHES", "MARKERS", "SKIPPED")
	for _, s := range sheets {
		table.Append(
			shortHash(s.Hash),
			s.Source,
			s.CleanedAt,
			s.FirstDate,
			s.LastDate,
			strconv.Itoa(s.Records),
			strconv.Itoa(s.Markers),
			strconv.Itoa(s.Skipped),
		)
	}
	table.Render()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// PrintMapSummary prints games and outcomes per map.
func PrintMapSummary(w io.Writer, rows []model.SummaryRow) {
	table := newTable(w)
	table.Header("MAP", "GAMES", "W", "D", "L", "WIN%")
	var total model.SummaryRow
	for _, r := range rows {
		table.Append(
			r.Key,
			strconv.Itoa(r.Games),
			strconv.Itoa(r.Wins),
			strconv.Itoa(r.Draws),
			strconv.Itoa(r.Losses),
			Rate(r.WinRate()),
		)
		total.Games += r.Games
		total.Wins += r.Wins
		total.Draws += r.Draws
		total.Losses += r.Losses
	}
	if len(rows) > 1 {
		table.Footer("TOTAL",
			strconv.Itoa(total.Games),
			strconv.Itoa(total.Wins),
			strconv.Itoa(total.Draws),
			strconv.Itoa(total.Losses),
			Rate(total.WinRate()),
		)
	}
	table.Render()
}

// PrintMapRanking prints maps ordered as given, with their win-rate band.
func PrintMapRanking(w io.Writer, rows []model.SummaryRow) {
	table := newTable(w)
	table.Header("#", "MAP", "GAMES", "WIN%", "BAND")
	for i, r := range rows {
		wr := r.WinRate() * 100
		table.Append(strconv.Itoa(i+1), r.Key, strconv.Itoa(r.Games), Pct(wr), Band(wr))
	}
	table.Render()
}

// PrintRoundInsights prints the per-map round table. Metric columns are shown
// only when at least one row carries the metric.
func PrintRoundInsights(w io.Writer, rows []model.RoundSummary) {
	var sides, pp, rt, pistol bool
	for _, r := range rows {
		sides = sides || r.HasSides
		pp = pp || r.HasPostPlant
		rt = rt || r.HasRetake
		pistol = pistol || r.HasPistol
	}

	header := []any{"MAP", "GAMES", "W", "D", "L", "WIN%"}
	if sides {
		header = append(header, "ATK WR", "DEF WR", "ROUND WR")
	}
	if pp {
		header = append(header, "POST-PLANT")
	}
	if rt {
		header = append(header, "RETAKE")
	}
	if pistol {
		header = append(header, "PISTOL W", "PISTOL%")
	}

	table := newTable(w)
	table.Header(header...)
	for _, r := range rows {
		row := []any{
			r.Key,
			strconv.Itoa(r.Games),
			strconv.Itoa(r.Wins),
			strconv.Itoa(r.Draws),
			strconv.Itoa(r.Losses),
			Rate(r.WinRate()),
		}
		if sides {
			row = append(row, Pct(r.AvgAtkWR), Pct(r.AvgDefWR), Pct(r.RoundWR))
		}
		if pp {
			row = append(row, Pct(r.PostPlant))
		}
		if rt {
			row = append(row, Pct(r.Retake))
		}
		if pistol {
			row = append(row, strconv.Itoa(r.PistolWins), Pct(r.PistolWR))
		}
		table.Append(row...)
	}
	table.Render()
}

// PrintPostPlant prints post-plant and retake success with their bands.
func PrintPostPlant(w io.Writer, rows []model.RoundSummary) {
	table := newTable(w)
	table.Header("MAP", "POST-PLANT", "BAND", "RETAKE", "BAND")
	for _, r := range rows {
		table.Append(r.Key, Pct(r.PostPlant), Band(r.PostPlant), Pct(r.Retake), Band(r.Retake))
	}
	table.Render()
}

// PrintCompositions prints ranked compositions.
func PrintCompositions(w io.Writer, rows []model.CompositionSummary) {
	table := newTable(w)
	table.Header("#", "COMPOSITION", "GAMES", "W", "D", "L", "WIN%")
	for i, c := range rows {
		table.Append(
			strconv.Itoa(i+1),
			c.Key,
			strconv.Itoa(c.Games),
			strconv.Itoa(c.Wins),
			strconv.Itoa(c.Draws),
			strconv.Itoa(c.Losses),
			Rate(c.WinRate()),
		)
	}
	table.Render()
}

// PrintAgents prints per-agent totals and ratios.
func PrintAgents(w io.Writer, rows []model.AgentAggregate) {
	table := newTable(w)
	table.Header("AGENT", "ROLE", "MAPS", "K", "D", "A", "ROUNDS", "K/D", "(K+A)/R", "FK", "PLANTS", "ACS")
	for _, a := range rows {
		acs := "-"
		if v := a.AvgACS(); !math.IsNaN(v) {
			acs = fmt.Sprintf("%.0f", v)
		}
		table.Append(
			a.Agent,
			a.Role,
			strconv.Itoa(a.Matches),
			strconv.Itoa(a.Kills),
			strconv.Itoa(a.Deaths),
			strconv.Itoa(a.Assists),
			strconv.Itoa(a.Rounds),
			Ratio(a.KDRatio()),
			Ratio(a.KAPerRound()),
			strconv.Itoa(a.FirstKills),
			strconv.Itoa(a.Plants),
			acs,
		)
	}
	table.Render()
}

// PrintRoleComparison prints observed per-round stats next to the role
// benchmarks, with signed deltas.
func PrintRoleComparison(w io.Writer, rows []model.RoleComparison) {
	table := newTable(w)
	table.Header("ROLE", "ROUNDS", "KPR", "Δ", "DPR", "Δ", "APR", "Δ", "FKPR", "Δ")
	for _, r := range rows {
		table.Append(
			r.Role,
			strconv.Itoa(r.Rounds),
			Ratio(r.Observed.KPR), signed(r.Delta.KPR),
			Ratio(r.Observed.DPR), signed(r.Delta.DPR),
			Ratio(r.Observed.APR), signed(r.Delta.APR),
			Ratio(r.Observed.FKPR), signed(r.Delta.FKPR),
		)
	}
	table.Render()
}

// PrintWarnings lists skipped metrics, one per line.
func PrintWarnings(w io.Writer, warnings []*model.MissingColumnWarning) {
	seen := make(map[string]bool)
	for _, warn := range warnings {
		if seen[warn.Metric] {
			continue
		}
		seen[warn.Metric] = true
		fmt.Fprintf(w, "  note: %s\n", warn)
	}
}

// PrintQueryResult prints an arbitrary result set.
func PrintQueryResult(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		table.Append(cells...)
	}
	table.Render()
}
