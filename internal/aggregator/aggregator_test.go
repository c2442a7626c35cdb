package aggregator

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/pable/go-scrim-metrics/internal/model"
)

var scoreHeader = []string{
	"Team", "Map", "Start", "Outcome", "First Half WR", "Second Half WR",
	"Atk PP %", "Def PP %", "Pistol 1", "Pistol 2",
}

// rec builds a match record; cells follow scoreHeader.
func rec(date string, cells ...string) model.MatchRecord {
	c := make([]string, len(scoreHeader))
	copy(c, cells)
	return model.MatchRecord{Date: date, Cells: c}
}

func scoreTable(records ...model.MatchRecord) *model.CleanedTable {
	return &model.CleanedTable{Header: scoreHeader, Records: records}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// ---- Filter ----

func TestFilterValidate(t *testing.T) {
	tbl := scoreTable(
		rec("2024-03-01", "A", "Ascent", "Attack", "Win"),
		rec("2024-03-05", "A", "Bind", "Attack", "Loss"),
	)
	if err := (Filter{Start: "2024-03-01", End: "2024-03-05"}).Validate(tbl); err != nil {
		t.Fatalf("valid range rejected: %v", err)
	}
	err := Filter{Start: "2024-03-02"}.Validate(tbl)
	if !errors.Is(err, ErrDateOutOfRange) {
		t.Fatalf("expected ErrDateOutOfRange, got %v", err)
	}
	if err := (Filter{Start: "2024-03-05", End: "2024-03-01"}).Validate(tbl); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestFilterMapSelection(t *testing.T) {
	cases := []struct {
		sel, m string
		want   bool
	}{
		{"", "Ascent", true},
		{"All", "Ascent", true},
		{"ascent", "Ascent ", true},
		{"Bind", "Ascent", false},
	}
	for _, c := range cases {
		if got := (Filter{Map: c.sel}).MatchesMap(c.m); got != c.want {
			t.Errorf("MatchesMap(%q, %q) = %v, want %v", c.sel, c.m, got, c.want)
		}
	}
}

// ---- Map summary ----

func TestMapSummary(t *testing.T) {
	tbl := scoreTable(
		rec("2024-03-01", "A", "Ascent", "Attack", "Win"),
		rec("2024-03-01", "A", "Ascent", "Defence", "WIN"),
		rec("2024-03-02", "A", "Ascent", "Attack", "loss"),
		rec("2024-03-02", "A", "Bind", "Attack", "Draw"),
		rec("2024-03-03", "A", "Bind", "Attack", "?"),
		rec("2024-03-09", "A", "Haven", "Attack", "Win"),
	)
	got, err := MapSummary(tbl, Filter{Start: "2024-03-01", End: "2024-03-03"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.SummaryRow{
		{Key: "Ascent", Games: 3, Wins: 2, Losses: 1},
		{Key: "Bind", Games: 1, Draws: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MapSummary = %+v, want %+v", got, want)
	}
	for _, r := range got {
		if r.Wins+r.Draws+r.Losses != r.Games {
			t.Errorf("%s: W+D+L=%d, games=%d", r.Key, r.Wins+r.Draws+r.Losses, r.Games)
		}
		if wr := r.WinRate(); wr < 0 || wr > 1 {
			t.Errorf("%s: win rate %v out of bounds", r.Key, wr)
		}
	}
}

func TestMapSummary_MissingOutcomeColumn(t *testing.T) {
	tbl := &model.CleanedTable{Header: []string{"Team", "Map", "Side"}}
	_, err := MapSummary(tbl, Filter{})
	var w *model.MissingColumnWarning
	if !errors.As(err, &w) || w.Column != "Outcome" {
		t.Fatalf("expected missing Outcome column, got %v", err)
	}
}

func TestMapSummary_DoesNotMutateInput(t *testing.T) {
	tbl := scoreTable(rec("2024-03-01", "A", " Ascent ", "Attack", "Win"))
	before := tbl.Clone()
	if _, err := MapSummary(tbl, Filter{Map: "Ascent"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := RoundInsights(tbl, Filter{}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, tbl) {
		t.Fatal("aggregation modified its input table")
	}
}

func TestRankByWinRate(t *testing.T) {
	rows := []model.SummaryRow{
		{Key: "Bind", Games: 2, Wins: 1, Losses: 1},
		{Key: "Empty"},
		{Key: "Ascent", Games: 4, Wins: 3, Losses: 1},
		{Key: "Haven", Games: 4, Wins: 2, Losses: 2},
	}
	got := RankByWinRate(rows)
	var keys []string
	for _, r := range got {
		keys = append(keys, r.Key)
	}
	want := []string{"Ascent", "Haven", "Bind", "Empty"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("rank order = %v, want %v", keys, want)
	}
	if rows[0].Key != "Bind" {
		t.Fatal("RankByWinRate reordered its input")
	}
}

// ---- Round insights ----

func TestDeriveSideRates(t *testing.T) {
	caps := Detect(scoreHeader)
	cases := []struct {
		name             string
		start, h1, h2    string
		wantAtk, wantDef float64
	}{
		{"attack start", "Attack", "0.6", "0.4", 0.6, 0.4},
		{"defence start", "Defence", "0.6", "0.4", 0.4, 0.6},
		{"percent text", "Defense", "58%", "41%", 41, 58},
		{"missing start", "", "0.6", "0.4", math.NaN(), math.NaN()},
		{"missing half", "Attack", "0.6", "", math.NaN(), math.NaN()},
	}
	for _, c := range cases {
		r := rec("2024-03-01", "A", "Ascent", c.start, "Win", c.h1, c.h2)
		got := DeriveSideRates(r, caps)
		if !sameFloat(got.Attack, c.wantAtk) || !sameFloat(got.Defence, c.wantDef) {
			t.Errorf("%s: got %+v, want atk=%v def=%v", c.name, got, c.wantAtk, c.wantDef)
		}
	}
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return approx(a, b)
}

func TestRoundInsights_PostPlantExcludesUnparseable(t *testing.T) {
	tbl := scoreTable(
		rec("2024-03-01", "A", "Ascent", "Attack", "Win", "", "", "55%"),
		rec("2024-03-01", "A", "Ascent", "Attack", "Win", "", "", "N/A"),
		rec("2024-03-01", "A", "Ascent", "Attack", "Loss", "", "", "60%"),
	)
	rows, _, err := RoundInsights(tbl, Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 map, got %d", len(rows))
	}
	if !approx(rows[0].PostPlant, 57.5) {
		t.Errorf("post-plant = %v, want 57.5", rows[0].PostPlant)
	}
	if !math.IsNaN(rows[0].Retake) {
		t.Errorf("retake = %v, want NaN for an all-empty column", rows[0].Retake)
	}
}

func TestRoundInsights_FractionColumnsScaled(t *testing.T) {
	tbl := scoreTable(
		rec("2024-03-01", "A", "Ascent", "Attack", "Win", "0.5", "0.7", "0.5", "0.25"),
		rec("2024-03-01", "A", "Ascent", "Defence", "Loss", "0.3", "0.6", "1", "0.75"),
	)
	rows, _, err := RoundInsights(tbl, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	r := rows[0]
	// attack: 0.5 (started attack), 0.6 (second half after defence)
	if !approx(r.AvgAtkWR, 55) || !approx(r.AvgDefWR, 50) {
		t.Errorf("side rates = %v/%v, want 55/50", r.AvgAtkWR, r.AvgDefWR)
	}
	if !approx(r.RoundWR, 52.5) {
		t.Errorf("round WR = %v, want 52.5", r.RoundWR)
	}
	if !approx(r.PostPlant, 75) || !approx(r.Retake, 50) {
		t.Errorf("pp/retake = %v/%v, want 75/50", r.PostPlant, r.Retake)
	}
}

func TestRoundInsights_RoundWRNeedsBothSides(t *testing.T) {
	tbl := scoreTable(rec("2024-03-01", "A", "Ascent", "", "Win", "0.5", "0.7"))
	rows, _, err := RoundInsights(tbl, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if !rows[0].HasSides || !math.IsNaN(rows[0].RoundWR) {
		t.Errorf("expected undefined round WR, got %v", rows[0].RoundWR)
	}
}

func TestRoundInsights_Pistol(t *testing.T) {
	tbl := scoreTable(
		rec("2024-03-01", "A", "Ascent", "Attack", "Win", "", "", "", "", "1", "1"),
		rec("2024-03-01", "A", "Ascent", "Attack", "Win", "", "", "", "", "1", "0"),
		rec("2024-03-02", "A", "Ascent", "Attack", "Loss", "", "", "", "", "Yes", "1"),
		rec("2024-03-02", "A", "Ascent", "Attack", "Loss", "", "", "", "", "", "0"),
	)
	rows, _, err := RoundInsights(tbl, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].PistolWins != 5 {
		t.Errorf("pistol wins = %d, want 5", rows[0].PistolWins)
	}
	if !approx(rows[0].PistolWR, 62.5) {
		t.Errorf("pistol WR = %v, want 62.5", rows[0].PistolWR)
	}
}

func TestRoundInsights_MissingOptionalColumns(t *testing.T) {
	tbl := &model.CleanedTable{
		Header:  []string{"Team", "Map", "Side", "Outcome"},
		Records: []model.MatchRecord{{Date: "2024-03-01", Cells: []string{"A", "Ascent", "Attack", "Win"}}},
	}
	rows, warnings, err := RoundInsights(tbl, Filter{})
	if err != nil {
		t.Fatalf("missing optional columns must not fail: %v", err)
	}
	r := rows[0]
	if r.HasSides || r.HasPostPlant || r.HasRetake || r.HasPistol {
		t.Errorf("unexpected metrics present: %+v", r)
	}
	if r.Games != 1 || r.Wins != 1 {
		t.Errorf("counts = %d/%d, want 1/1", r.Games, r.Wins)
	}
	metrics := map[string]bool{}
	for _, w := range warnings {
		metrics[w.Metric] = true
	}
	for _, m := range []string{"side win rates", "post-plant success", "retake success", "pistol win rate"} {
		if !metrics[m] {
			t.Errorf("missing warning for %q", m)
		}
	}
}

func TestSortRounds(t *testing.T) {
	rows := []model.RoundSummary{
		{SummaryRow: model.SummaryRow{Key: "Ascent"}, PostPlant: 40},
		{SummaryRow: model.SummaryRow{Key: "Bind"}, PostPlant: math.NaN()},
		{SummaryRow: model.SummaryRow{Key: "Haven"}, PostPlant: 70},
	}
	keys := func(rs []model.RoundSummary) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.Key)
		}
		return out
	}
	if got := keys(SortRounds(rows, SortByPostPlant, true)); !reflect.DeepEqual(got, []string{"Haven", "Ascent", "Bind"}) {
		t.Errorf("desc = %v", got)
	}
	if got := keys(SortRounds(rows, SortByPostPlant, false)); !reflect.DeepEqual(got, []string{"Ascent", "Haven", "Bind"}) {
		t.Errorf("asc = %v", got)
	}
	if ParseRoundSortKey("bogus") != SortByMap {
		t.Error("unknown sort key should fall back to map")
	}
}

// ---- Compositions ----

func block(m, result string, agents ...string) []model.RosterRow {
	out := make([]model.RosterRow, 0, len(agents))
	for _, a := range agents {
		out = append(out, model.RosterRow{Map: m, Agent: a, Result: result})
	}
	return out
}

var (
	compA = []string{"Jett", "Sova", "Omen", "Killjoy", "Skye"}
	compB = []string{"Raze", "Fade", "Viper", "Cypher", "Breach"}
)

func TestBlocks_MixedOutcomeExcluded(t *testing.T) {
	mixed := block("Ascent", "Win", compA...)
	mixed[4].Result = "Loss"
	roster := append(mixed, block("Ascent", "win", compB...)...)

	got := Blocks(roster)
	if len(got) != 1 {
		t.Fatalf("expected 1 valid block, got %d", len(got))
	}
	if got[0].Outcome != model.OutcomeWin {
		t.Errorf("outcome = %v", got[0].Outcome)
	}
	if got[0].Key() != "Breach-Cypher-Fade-Raze-Viper" {
		t.Errorf("key = %q", got[0].Key())
	}
}

func TestBlocks_TrailingPartialDropped(t *testing.T) {
	roster := append(block("Ascent", "Win", compA...), block("Bind", "Win", "Jett", "Sova")...)
	if got := Blocks(roster); len(got) != 1 {
		t.Fatalf("expected 1 block, got %d", len(got))
	}
}

func TestCompositions_RequireCorroboration(t *testing.T) {
	tbl := scoreTable(
		rec("2024-03-01", "A", "Ascent", "Attack", "Win"),
		rec("2024-03-02", "A", "Bind", "Attack", "Loss"),
	)
	var roster []model.RosterRow
	roster = append(roster, block("Ascent", "Win", compA...)...)
	roster = append(roster, block("Ascent", "Win", compA...)...)
	roster = append(roster, block("Ascent", "Loss", compB...)...) // no Ascent loss in table
	roster = append(roster, block("Bind", "Loss", compB...)...)

	got, err := Compositions(roster, tbl, Filter{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 compositions, got %+v", got)
	}
	if got[0].Key != "Jett-Killjoy-Omen-Skye-Sova" || got[0].Games != 2 || got[0].Wins != 2 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Games != 1 || got[1].Losses != 1 {
		t.Errorf("second = %+v", got[1])
	}

	// Restricting the dates removes the only Bind row, so compB disappears.
	got, err = Compositions(roster, tbl, Filter{Start: "2024-03-01", End: "2024-03-01"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range got {
		if c.Key == "Breach-Cypher-Fade-Raze-Viper" {
			t.Fatalf("uncorroborated composition present: %+v", c)
		}
	}
}

func TestCompositions_MapFilterAndTop(t *testing.T) {
	tbl := scoreTable(
		rec("2024-03-01", "A", "Ascent", "Attack", "Win"),
		rec("2024-03-01", "A", "Bind", "Attack", "Win"),
	)
	roster := append(block("Ascent", "Win", compA...), block("Bind", "Win", compB...)...)

	got, err := Compositions(roster, tbl, Filter{Map: "Bind"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Key != "Breach-Cypher-Fade-Raze-Viper" {
		t.Fatalf("map filter: got %+v", got)
	}
	got, err = Compositions(roster, tbl, Filter{}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("top=1 returned %d rows", len(got))
	}
}

func TestCompositionMaps(t *testing.T) {
	bad := block("Haven", "Win", compA...)
	bad[0].Map = "Bind"
	roster := append(block("Split", "Win", compA...), bad...)
	roster = append(roster, block("Ascent", "Loss", compB...)...)
	got := CompositionMaps(roster)
	if !reflect.DeepEqual(got, []string{"Ascent", "Split"}) {
		t.Fatalf("CompositionMaps = %v", got)
	}
}

// ---- Agents ----

func TestAgentSummary(t *testing.T) {
	players := []model.PlayerRow{
		{Player: "alpha", Agent: "Jett", Map: "Ascent", Date: "2024-03-01", Kills: 20, Deaths: 10, Assists: 4, Rounds: 24, ACS: 250},
		{Player: "alpha", Agent: "Jett", Map: "Bind", Date: "2024-03-02", Kills: 10, Deaths: 10, Assists: 2, Rounds: 20, ACS: math.NaN()},
		{Player: "alpha", Agent: "Sova", Map: "Ascent", Date: "2024-03-02", Kills: 5, Deaths: 0, Assists: 10, Rounds: 0},
		{Player: "beta", Agent: "Jett", Map: "Ascent", Date: "2024-03-01", Kills: 99, Deaths: 1, Rounds: 24},
	}
	got := AgentSummary(players, Filter{Player: "ALPHA"})
	if len(got) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(got))
	}
	jett := got[0]
	if jett.Agent != "Jett" || jett.Matches != 2 || jett.Kills != 30 || jett.Rounds != 44 {
		t.Fatalf("jett = %+v", jett)
	}
	if jett.Role != RoleDuelist {
		t.Errorf("role = %q", jett.Role)
	}
	if !approx(jett.KDRatio(), 1.5) {
		t.Errorf("K/D = %v", jett.KDRatio())
	}
	if !approx(jett.AvgACS(), 250) {
		t.Errorf("avg ACS = %v", jett.AvgACS())
	}
	sova := got[1]
	if !math.IsNaN(sova.KDRatio()) || !math.IsNaN(sova.KAPerRound()) {
		t.Errorf("expected undefined ratios for sova, got %v %v", sova.KDRatio(), sova.KAPerRound())
	}

	got = AgentSummary(players, Filter{Map: "Bind", Start: "2024-03-02", End: "2024-03-02"})
	if len(got) != 1 || got[0].Kills != 10 {
		t.Fatalf("filtered = %+v", got)
	}
}

func TestRoleOf(t *testing.T) {
	cases := map[string]string{
		"Jett":       RoleDuelist,
		"KAY/O":      RoleInitiator,
		" brimstone": RoleController,
		"Killjoy":    RoleSentinel,
		"Nobody":     RoleUnknown,
	}
	for agent, want := range cases {
		if got := RoleOf(agent); got != want {
			t.Errorf("RoleOf(%q) = %q, want %q", agent, got, want)
		}
	}
}

func TestCompareRoles(t *testing.T) {
	aggs := []model.AgentAggregate{
		{Agent: "Jett", Role: RoleDuelist, Kills: 20, Deaths: 15, Assists: 5, FirstKills: 4, Rounds: 20},
		{Agent: "Raze", Role: RoleDuelist, Kills: 10, Deaths: 5, Assists: 5, FirstKills: 0, Rounds: 20},
		{Agent: "Sova", Role: RoleInitiator, Kills: 5, Rounds: 0},
		{Agent: "Mystery", Role: RoleUnknown, Kills: 5, Rounds: 10},
	}
	got := CompareRoles(aggs)
	if len(got) != 1 {
		t.Fatalf("expected only the duelist row, got %+v", got)
	}
	d := got[0]
	if d.Rounds != 40 || !approx(d.Observed.KPR, 0.75) || !approx(d.Observed.FKPR, 0.1) {
		t.Fatalf("observed = %+v", d)
	}
	bench, _ := Benchmark(RoleDuelist)
	if !approx(d.Delta.KPR, 0.75-bench.KPR) || !approx(d.Delta.DPR, 0.5-bench.DPR) {
		t.Errorf("delta = %+v", d.Delta)
	}
}
