package model

import (
	"math"
	"slices"
	"strings"
)

// Outcome is the result of a scrim map from our team's point of view.
type Outcome int

const (
	OutcomeUnknown Outcome = 0
	OutcomeWin     Outcome = 1
	OutcomeDraw    Outcome = 2
	OutcomeLoss    Outcome = 3
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "Win"
	case OutcomeDraw:
		return "Draw"
	case OutcomeLoss:
		return "Loss"
	default:
		return "?"
	}
}

// ParseOutcome matches outcome text case-insensitively against "win", "draw" and "loss".
func ParseOutcome(s string) Outcome {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "win":
		return OutcomeWin
	case "draw":
		return OutcomeDraw
	case "loss":
		return OutcomeLoss
	default:
		return OutcomeUnknown
	}
}

// Side is the side a team started a map on.
type Side int

const (
	SideUnknown Side = 0
	SideAttack  Side = 1
	SideDefence Side = 2
)

func (s Side) String() string {
	switch s {
	case SideAttack:
		return "Attack"
	case SideDefence:
		return "Defence"
	default:
		return "?"
	}
}

// ParseSide accepts the spellings seen in tracking sheets ("Attack", "Atk", "Defence", "Defense", "Def").
func ParseSide(s string) Side {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "attack", "atk", "attacker", "attackers":
		return SideAttack
	case "defence", "defense", "def", "defender", "defenders":
		return SideDefence
	default:
		return SideUnknown
	}
}

// ---- Raw sheet input ----

// RawRow is one spreadsheet row, positionally aligned to the sheet header.
// Missing trailing cells are simply absent.
type RawRow []string

// Cell returns cell i, or "" when the row is shorter than i+1.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// IsEmptyCell reports whether a cell carries no value. Spreadsheet exports
// write missing numbers as "NaN" or "nan", which count as empty too.
func IsEmptyCell(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return true
	}
	switch strings.ToLower(t) {
	case "nan", "null", "none", "<na>":
		return true
	}
	return false
}

// ---- Cleaned scrim table ----

// DateColumn is the name of the column prepended by normalization.
const DateColumn = "date"

// MatchRecord is one date-stamped scrim match row.
type MatchRecord struct {
	Date  string   // ISO calendar date, "YYYY-MM-DD"
	Row   int      // index of the source row in the raw sheet (0 = first row after the header)
	Cells []string // passthrough cells, aligned to CleanedTable.Header
}

// Cell returns cell i, or "" when out of range.
func (m MatchRecord) Cell(i int) string {
	if i < 0 || i >= len(m.Cells) {
		return ""
	}
	return m.Cells[i]
}

// Values returns the full output row: date followed by the passthrough cells.
func (m MatchRecord) Values() []string {
	out := make([]string, 0, len(m.Cells)+1)
	out = append(out, m.Date)
	return append(out, m.Cells...)
}

// CleanedTable is the normalized scrim sheet. Header holds the original
// column names; the output schema is Columns() = ["date"] + Header.
// Tables are not modified after construction; use Clone before deriving.
type CleanedTable struct {
	Header  []string
	Records []MatchRecord
}

// Columns returns the output schema.
func (t *CleanedTable) Columns() []string {
	out := make([]string, 0, len(t.Header)+1)
	out = append(out, DateColumn)
	return append(out, t.Header...)
}

// Len returns the number of records; a nil table has none.
func (t *CleanedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Clone returns a deep copy.
func (t *CleanedTable) Clone() *CleanedTable {
	if t == nil {
		return &CleanedTable{}
	}
	out := &CleanedTable{
		Header:  slices.Clone(t.Header),
		Records: make([]MatchRecord, len(t.Records)),
	}
	for i, r := range t.Records {
		out.Records[i] = MatchRecord{Date: r.Date, Row: r.Row, Cells: slices.Clone(r.Cells)}
	}
	return out
}

// Dates returns the sorted distinct dates present in the table.
func (t *CleanedTable) Dates() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.Records {
		if _, ok := seen[r.Date]; ok || r.Date == "" {
			continue
		}
		seen[r.Date] = struct{}{}
		out = append(out, r.Date)
	}
	slices.Sort(out)
	return out
}

// ---- Roster / composition sheet ----

// CompositionSize is the number of agents fielded by one team in one match.
const CompositionSize = 5

// RosterRow is one player line of the roster sheet.
type RosterRow struct {
	Map    string
	Agent  string
	Result string
}

// CompositionRecord is one team's 5-agent loadout for one match.
type CompositionRecord struct {
	Map     string
	Outcome Outcome
	Agents  []string // sorted
}

// Key is the composition identity: the sorted agents joined by "-".
func (c CompositionRecord) Key() string {
	return strings.Join(c.Agents, "-")
}

// ---- Player performance sheet ----

// PlayerRow is one player-map line of the performance sheet.
// Optional percentage fields are NaN when absent.
type PlayerRow struct {
	Player     string
	Agent      string
	Map        string
	Date       string // ISO date when parseable, else ""
	Kills      int
	Deaths     int
	Assists    int
	Rounds     int
	ACS        float64 // average combat score for the map
	FirstKills int
	Plants     int
	KASTPct    float64
	HSPct      float64
}

// ---- Stored cleaning runs ----

// SheetSummary describes one normalization run stored in the database.
type SheetSummary struct {
	Hash      string // sha256 of the cleaned CSV
	Source    string // raw sheet path or URI
	CleanedAt string // RFC 3339
	Records   int
	Markers   int
	Skipped   int
	FirstDate string
	LastDate  string
}

// ---- Aggregated outputs ----

// SummaryRow is a per-map or per-composition rollup.
type SummaryRow struct {
	Key    string
	Games  int
	Wins   int
	Draws  int
	Losses int
}

// Add counts one game with the given outcome. Unknown outcomes are ignored
// so that Wins+Draws+Losses == Games always holds.
func (s *SummaryRow) Add(o Outcome) {
	switch o {
	case OutcomeWin:
		s.Wins++
	case OutcomeDraw:
		s.Draws++
	case OutcomeLoss:
		s.Losses++
	default:
		return
	}
	s.Games++
}

// WinRate returns Wins/Games in [0,1], NaN when no games were played.
func (s SummaryRow) WinRate() float64 {
	if s.Games == 0 {
		return math.NaN()
	}
	return float64(s.Wins) / float64(s.Games)
}

// RoundSummary extends SummaryRow with per-map round metrics. Rates are in
// percentage points (0–100); NaN means the metric is undefined for the map.
// The Has* flags say whether the sheet carried the columns for a metric.
type RoundSummary struct {
	SummaryRow

	AvgAtkWR float64
	AvgDefWR float64
	RoundWR  float64
	HasSides bool

	PostPlant    float64
	HasPostPlant bool
	Retake       float64
	HasRetake    bool

	PistolWins int
	PistolWR   float64
	HasPistol  bool
}

// CompositionSummary is one ranked composition: Key is the agent key, Agents its members.
type CompositionSummary struct {
	SummaryRow
	Agents []string
}

// AgentAggregate holds summed player stats for one agent.
type AgentAggregate struct {
	Agent   string
	Role    string
	Matches int

	Kills, Deaths, Assists int
	Rounds                 int
	FirstKills, Plants     int
	ACSSum                 float64
	ACSMaps                int // matches that reported a combat score
}

// KDRatio returns kills/deaths, NaN when deaths == 0.
func (a *AgentAggregate) KDRatio() float64 {
	if a.Deaths == 0 {
		return math.NaN()
	}
	return float64(a.Kills) / float64(a.Deaths)
}

// KAPerRound returns (kills+assists)/rounds, NaN when rounds == 0.
func (a *AgentAggregate) KAPerRound() float64 {
	if a.Rounds == 0 {
		return math.NaN()
	}
	return float64(a.Kills+a.Assists) / float64(a.Rounds)
}

// AvgACS returns the mean per-map combat score, NaN when none was reported.
func (a *AgentAggregate) AvgACS() float64 {
	if a.ACSMaps == 0 {
		return math.NaN()
	}
	return a.ACSSum / float64(a.ACSMaps)
}

// RoleStats holds per-round-normalized stats for a role.
type RoleStats struct {
	KPR  float64 `json:"kpr"`  // kills per round
	DPR  float64 `json:"dpr"`  // deaths per round
	APR  float64 `json:"apr"`  // assists per round
	FKPR float64 `json:"fkpr"` // first kills per round
}

// RoleComparison compares a role's observed stats against its benchmark.
// Delta = Observed - Benchmark for each stat.
type RoleComparison struct {
	Role      string    `json:"role"`
	Rounds    int       `json:"rounds"`
	Observed  RoleStats `json:"observed"`
	Benchmark RoleStats `json:"benchmark"`
	Delta     RoleStats `json:"delta"`
}
