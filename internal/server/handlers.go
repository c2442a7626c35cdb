package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
)

// viewQuery holds the query parameters shared by the views.
type viewQuery struct {
	Start  string `validate:"omitempty,datetime=2006-01-02"`
	End    string `validate:"omitempty,datetime=2006-01-02"`
	Map    string `validate:"max=64"`
	Player string `validate:"max=64"`
	Sort   string `validate:"omitempty,oneof=map winrate roundwr postplant retake pistol"`
	Order  string `validate:"omitempty,oneof=asc desc"`
	Top    int    `validate:"min=0,max=100"`
}

func (q viewQuery) filter() aggregator.Filter {
	return aggregator.Filter{Start: q.Start, End: q.End, Map: q.Map, Player: q.Player}
}

// parseQuery reads and validates the view parameters. With scoreDates set,
// date bounds must be dates present in the score table.
func (s *Server) parseQuery(r *http.Request, scoreDates bool) (viewQuery, error) {
	v := r.URL.Query()
	q := viewQuery{
		Start:  v.Get("start"),
		End:    v.Get("end"),
		Map:    v.Get("map"),
		Player: v.Get("player"),
		Sort:   v.Get("sort"),
		Order:  v.Get("order"),
	}
	if top := v.Get("top"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil {
			return q, fmt.Errorf("top: %q is not a number", top)
		}
		q.Top = n
	}
	if err := s.validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return q, fmt.Errorf("%s: failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return q, err
	}
	if scoreDates {
		if err := q.filter().Validate(s.data.Scores); err != nil {
			return q, err
		}
	}
	return q, nil
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":  "ok",
		"matches": s.data.Scores.Len(),
		"roster":  len(s.data.Roster),
		"players": len(s.data.Players),
	})
}

type metaResponse struct {
	Maps            []string `json:"maps"`
	Dates           []string `json:"dates"`
	Players         []string `json:"players"`
	CompositionMaps []string `json:"composition_maps"`
	Warnings        []string `json:"warnings,omitempty"`
}

// getMeta lists the selector values the views accept.
func (s *Server) getMeta(w http.ResponseWriter, r *http.Request) {
	var warnings []string
	warnings = append(warnings, s.data.Warnings...)
	for _, wn := range aggregator.Detect(s.data.Scores.Header).Warnings() {
		warnings = append(warnings, wn.Error())
	}
	render.JSON(w, r, metaResponse{
		Maps:            nonNil(aggregator.MapNames(s.data.Scores)),
		Dates:           nonNil(s.data.Scores.Dates()),
		Players:         nonNil(aggregator.PlayerNames(s.data.Players)),
		CompositionMaps: nonNil(aggregator.CompositionMaps(s.data.Roster)),
		Warnings:        warnings,
	})
}

type mapsResponse struct {
	Summary  []mapRow `json:"summary"`
	Ranking  []mapRow `json:"ranking"`
	Warnings []string `json:"warnings,omitempty"`
}

// noScores answers with empty, a view with no rows, when the score table
// could not be loaded. The load warnings travel with it.
func (s *Server) noScores(w http.ResponseWriter, r *http.Request, empty func(warnings []string) any) bool {
	if s.data.Scores.Len() > 0 {
		return false
	}
	warnings := append([]string{}, s.data.Warnings...)
	if len(warnings) == 0 {
		warnings = append(warnings, "no match rows loaded")
	}
	render.JSON(w, r, empty(warnings))
	return true
}

func (s *Server) getMaps(w http.ResponseWriter, r *http.Request) {
	if s.noScores(w, r, func(warnings []string) any {
		return mapsResponse{Summary: []mapRow{}, Ranking: []mapRow{}, Warnings: warnings}
	}) {
		return
	}
	q, err := s.parseQuery(r, true)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	rows, err := aggregator.MapSummary(s.data.Scores, aggregator.Filter{Start: q.Start, End: q.End})
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	render.JSON(w, r, mapsResponse{
		Summary: toMapRows(rows),
		Ranking: toMapRows(aggregator.RankByWinRate(rows)),
	})
}

type roundsResponse struct {
	Rounds   []roundRow `json:"rounds"`
	Warnings []string   `json:"warnings,omitempty"`
}

func (s *Server) getRounds(w http.ResponseWriter, r *http.Request) {
	if s.noScores(w, r, func(warnings []string) any {
		return roundsResponse{Rounds: []roundRow{}, Warnings: warnings}
	}) {
		return
	}
	q, err := s.parseQuery(r, true)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	rows, warnings, err := aggregator.RoundInsights(s.data.Scores, q.filter())
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	if q.Sort != "" {
		rows = aggregator.SortRounds(rows, aggregator.ParseRoundSortKey(q.Sort), q.Order == "desc")
	}
	resp := roundsResponse{Rounds: toRoundRows(rows)}
	for _, wn := range warnings {
		resp.Warnings = append(resp.Warnings, wn.Error())
	}
	render.JSON(w, r, resp)
}

func (s *Server) getCompositions(w http.ResponseWriter, r *http.Request) {
	if s.noScores(w, r, func(warnings []string) any {
		return map[string]any{"compositions": []compRow{}, "warnings": warnings}
	}) {
		return
	}
	q, err := s.parseQuery(r, true)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	top := q.Top
	if top == 0 {
		top = s.top
	}
	rows, err := aggregator.Compositions(s.data.Roster, s.data.Scores, q.filter(), top)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	render.JSON(w, r, map[string]any{"compositions": toCompRows(rows)})
}

func (s *Server) getAgents(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, false)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	rows := aggregator.AgentSummary(s.data.Players, q.filter())
	render.JSON(w, r, map[string]any{"agents": toAgentRows(rows)})
}

func (s *Server) getBenchmarks(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, false)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	rows := aggregator.CompareRoles(aggregator.AgentSummary(s.data.Players, q.filter()))
	render.JSON(w, r, map[string]any{"roles": nonNil(rows)})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
