package aggregator

import (
	"math"
	"sort"
	"strings"

	"github.com/pable/go-scrim-metrics/internal/model"
)

// Role categories.
const (
	RoleDuelist    = "Duelist"
	RoleInitiator  = "Initiator"
	RoleController = "Controller"
	RoleSentinel   = "Sentinel"
	RoleUnknown    = "Unknown"
)

// Roles lists the role categories in display order.
var Roles = []string{RoleDuelist, RoleInitiator, RoleController, RoleSentinel}

var agentRoles = map[string]string{
	"jett": RoleDuelist, "phoenix": RoleDuelist, "reyna": RoleDuelist, "raze": RoleDuelist,
	"yoru": RoleDuelist, "neon": RoleDuelist, "iso": RoleDuelist, "waylay": RoleDuelist,

	"sova": RoleInitiator, "breach": RoleInitiator, "skye": RoleInitiator, "kayo": RoleInitiator,
	"fade": RoleInitiator, "gekko": RoleInitiator, "tejo": RoleInitiator,

	"brimstone": RoleController, "viper": RoleController, "omen": RoleController,
	"astra": RoleController, "harbor": RoleController, "clove": RoleController,

	"killjoy": RoleSentinel, "cypher": RoleSentinel, "sage": RoleSentinel,
	"chamber": RoleSentinel, "deadlock": RoleSentinel, "vyse": RoleSentinel,
}

// roleBenchmarks are reference per-round stats for each role.
var roleBenchmarks = map[string]model.RoleStats{
	RoleDuelist:    {KPR: 0.85, DPR: 0.72, APR: 0.22, FKPR: 0.16},
	RoleInitiator:  {KPR: 0.70, DPR: 0.68, APR: 0.38, FKPR: 0.09},
	RoleController: {KPR: 0.66, DPR: 0.66, APR: 0.34, FKPR: 0.07},
	RoleSentinel:   {KPR: 0.64, DPR: 0.62, APR: 0.26, FKPR: 0.07},
}

// RoleOf returns the role category of an agent, RoleUnknown if unrecognized.
func RoleOf(agent string) string {
	k := strings.ToLower(strings.TrimSpace(agent))
	k = strings.NewReplacer("/", "", " ", "", "-", "").Replace(k)
	if r, ok := agentRoles[k]; ok {
		return r
	}
	return RoleUnknown
}

// Benchmark returns the reference stats for a role.
func Benchmark(role string) (model.RoleStats, bool) {
	s, ok := roleBenchmarks[role]
	return s, ok
}

// AgentSummary sums player rows per agent after applying the player, date
// and map selections of f. Rows are ordered by matches played descending,
// then agent name.
func AgentSummary(players []model.PlayerRow, f Filter) []model.AgentAggregate {
	g := newGrouper[model.AgentAggregate]()
	for _, p := range players {
		if f.Player != "" && !sameLabel(p.Player, f.Player) {
			continue
		}
		if !f.InRange(p.Date) || !f.MatchesMap(p.Map) {
			continue
		}
		a := g.get(p.Agent, func() *model.AgentAggregate {
			return &model.AgentAggregate{Agent: p.Agent, Role: RoleOf(p.Agent)}
		})
		a.Matches++
		a.Kills += p.Kills
		a.Deaths += p.Deaths
		a.Assists += p.Assists
		a.Rounds += p.Rounds
		a.FirstKills += p.FirstKills
		a.Plants += p.Plants
		if !math.IsNaN(p.ACS) {
			a.ACSSum += p.ACS
			a.ACSMaps++
		}
	}

	out := make([]model.AgentAggregate, 0, len(g.order))
	for _, a := range g.sorted() {
		out = append(out, *a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Matches > out[j].Matches
	})
	return out
}

// CompareRoles folds agent aggregates into their roles and compares the
// per-round stats with the role benchmarks. Roles without rounds and agents
// of unknown role are left out.
func CompareRoles(aggs []model.AgentAggregate) []model.RoleComparison {
	type totals struct{ rounds, kills, deaths, assists, fks int }
	byRole := make(map[string]*totals)
	for _, a := range aggs {
		if _, ok := roleBenchmarks[a.Role]; !ok {
			continue
		}
		t := byRole[a.Role]
		if t == nil {
			t = &totals{}
			byRole[a.Role] = t
		}
		t.rounds += a.Rounds
		t.kills += a.Kills
		t.deaths += a.Deaths
		t.assists += a.Assists
		t.fks += a.FirstKills
	}

	var out []model.RoleComparison
	for _, role := range Roles {
		t := byRole[role]
		if t == nil || t.rounds == 0 {
			continue
		}
		n := float64(t.rounds)
		obs := model.RoleStats{
			KPR:  float64(t.kills) / n,
			DPR:  float64(t.deaths) / n,
			APR:  float64(t.assists) / n,
			FKPR: float64(t.fks) / n,
		}
		bench := roleBenchmarks[role]
		out = append(out, model.RoleComparison{
			Role:      role,
			Rounds:    t.rounds,
			Observed:  obs,
			Benchmark: bench,
			Delta: model.RoleStats{
				KPR:  obs.KPR - bench.KPR,
				DPR:  obs.DPR - bench.DPR,
				APR:  obs.APR - bench.APR,
				FKPR: obs.FKPR - bench.FKPR,
			},
		})
	}
	return out
}

// PlayerNames lists the distinct players in the sheet, sorted.
func PlayerNames(players []model.PlayerRow) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range players {
		if p.Player == "" || seen[label(p.Player)] {
			continue
		}
		seen[label(p.Player)] = true
		out = append(out, p.Player)
	}
	sort.Strings(out)
	return out
}

// MapNames lists the distinct map labels of the table, sorted.
func MapNames(t *model.CleanedTable) []string {
	t = orEmpty(t)
	caps := Detect(t.Header)
	if !caps.HasMap() {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Records {
		m := strings.TrimSpace(r.Cell(caps.Map))
		if model.IsEmptyCell(m) || seen[label(m)] {
			continue
		}
		seen[label(m)] = true
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
