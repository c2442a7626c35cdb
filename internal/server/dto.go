package server

import (
	"math"

	"github.com/pable/go-scrim-metrics/internal/model"
	"github.com/pable/go-scrim-metrics/internal/report"
)

// JSON has no NaN; undefined metrics are encoded as null.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type mapRow struct {
	Map     string   `json:"map"`
	Games   int      `json:"games"`
	Wins    int      `json:"wins"`
	Draws   int      `json:"draws"`
	Losses  int      `json:"losses"`
	WinRate *float64 `json:"win_rate"` // percent
	Band    string   `json:"band,omitempty"`
}

func toMapRows(rows []model.SummaryRow) []mapRow {
	out := make([]mapRow, 0, len(rows))
	for _, r := range rows {
		wr := r.WinRate() * 100
		out = append(out, mapRow{
			Map: r.Key, Games: r.Games, Wins: r.Wins, Draws: r.Draws, Losses: r.Losses,
			WinRate: num(wr), Band: report.Band(wr),
		})
	}
	return out
}

type roundRow struct {
	mapRow
	AvgAtkWR   *float64 `json:"avg_atk_wr,omitempty"`
	AvgDefWR   *float64 `json:"avg_def_wr,omitempty"`
	RoundWR    *float64 `json:"round_wr,omitempty"`
	PostPlant  *float64 `json:"post_plant,omitempty"`
	Retake     *float64 `json:"retake,omitempty"`
	PistolWins *int     `json:"pistol_wins,omitempty"`
	PistolWR   *float64 `json:"pistol_wr,omitempty"`
}

func toRoundRows(rows []model.RoundSummary) []roundRow {
	out := make([]roundRow, 0, len(rows))
	for _, r := range rows {
		row := roundRow{mapRow: toMapRows([]model.SummaryRow{r.SummaryRow})[0]}
		if r.HasSides {
			row.AvgAtkWR, row.AvgDefWR, row.RoundWR = num(r.AvgAtkWR), num(r.AvgDefWR), num(r.RoundWR)
		}
		if r.HasPostPlant {
			row.PostPlant = num(r.PostPlant)
		}
		if r.HasRetake {
			row.Retake = num(r.Retake)
		}
		if r.HasPistol {
			wins := r.PistolWins
			row.PistolWins, row.PistolWR = &wins, num(r.PistolWR)
		}
		out = append(out, row)
	}
	return out
}

type compRow struct {
	Composition string   `json:"composition"`
	Agents      []string `json:"agents"`
	Games       int      `json:"games"`
	Wins        int      `json:"wins"`
	Draws       int      `json:"draws"`
	Losses      int      `json:"losses"`
	WinRate     *float64 `json:"win_rate"`
}

func toCompRows(rows []model.CompositionSummary) []compRow {
	out := make([]compRow, 0, len(rows))
	for _, c := range rows {
		out = append(out, compRow{
			Composition: c.Key, Agents: c.Agents,
			Games: c.Games, Wins: c.Wins, Draws: c.Draws, Losses: c.Losses,
			WinRate: num(c.WinRate() * 100),
		})
	}
	return out
}

type agentRow struct {
	Agent      string   `json:"agent"`
	Role       string   `json:"role"`
	Matches    int      `json:"matches"`
	Kills      int      `json:"kills"`
	Deaths     int      `json:"deaths"`
	Assists    int      `json:"assists"`
	Rounds     int      `json:"rounds"`
	FirstKills int      `json:"first_kills"`
	Plants     int      `json:"plants"`
	KD         *float64 `json:"kd"`
	KAPR       *float64 `json:"ka_per_round"`
	AvgACS     *float64 `json:"avg_acs"`
}

func toAgentRows(rows []model.AgentAggregate) []agentRow {
	out := make([]agentRow, 0, len(rows))
	for _, a := range rows {
		out = append(out, agentRow{
			Agent: a.Agent, Role: a.Role, Matches: a.Matches,
			Kills: a.Kills, Deaths: a.Deaths, Assists: a.Assists, Rounds: a.Rounds,
			FirstKills: a.FirstKills, Plants: a.Plants,
			KD: num(a.KDRatio()), KAPR: num(a.KAPerRound()), AvgACS: num(a.AvgACS()),
		})
	}
	return out
}
