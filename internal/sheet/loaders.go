package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pable/go-scrim-metrics/internal/dates"
	"github.com/pable/go-scrim-metrics/internal/model"
)

// Column aliases for the secondary sheets.
var (
	rosterMapCols    = []string{"Column 1", "Map"}
	rosterAgentCols  = []string{"Agent"}
	rosterResultCols = []string{"Result", "Outcome"}

	playerNameCols   = []string{"Player", "Name", "IGN"}
	playerAgentCols  = []string{"Agent"}
	playerMapCols    = []string{"Map"}
	playerDateCols   = []string{"Date"}
	playerKillCols   = []string{"Kills", "K"}
	playerDeathCols  = []string{"Deaths", "D"}
	playerAssistCols = []string{"Assists", "A"}
	playerRoundCols  = []string{"Rounds", "Rounds Played"}
	playerACSCols    = []string{"ACS", "Combat Score"}
	playerFirstKCols = []string{"First Kills", "FK"}
	playerPlantCols  = []string{"Plants"}
	playerKASTCols   = []string{"KAST %", "KAST%", "KAST"}
	playerHSCols     = []string{"HS %", "HS%", "HS"}
)

// LoadCleaned reads a cleaned scrim table written by WriteCleaned. On any
// failure it returns an empty table together with a *model.SourceLoadError so
// callers can keep going with whatever else loaded.
func LoadCleaned(ctx context.Context, path string) (*model.CleanedTable, error) {
	raw, err := ReadRaw(ctx, path)
	if err != nil {
		return &model.CleanedTable{}, &model.SourceLoadError{Path: path, Err: err}
	}
	if len(raw.Header) == 0 || !strings.EqualFold(raw.Header[0], model.DateColumn) {
		return &model.CleanedTable{}, &model.SourceLoadError{
			Path: path,
			Err:  fmt.Errorf("first column must be %q, got %q", model.DateColumn, first(raw.Header)),
		}
	}

	header := raw.Header[1:]
	table := &model.CleanedTable{
		Header:  append([]string(nil), header...),
		Records: make([]model.MatchRecord, 0, len(raw.Rows)),
	}
	for i, row := range raw.Rows {
		if model.IsEmptyCell(row.Cell(0)) {
			continue
		}
		cells := make([]string, len(header))
		if len(row) > 1 {
			copy(cells, row[1:])
		}
		table.Records = append(table.Records, model.MatchRecord{
			Date:  strings.TrimSpace(row[0]),
			Row:   i,
			Cells: cells,
		})
	}
	return table, nil
}

// WriteCleaned persists t as CSV at path, creating parent directories.
func WriteCleaned(path string, t *model.CleanedTable) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodeCleaned(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeCleaned writes t as CSV: the "date" column followed by the original columns.
func EncodeCleaned(w io.Writer, t *model.CleanedTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range t.Records {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("write row %d: %w", r.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadRoster reads the composition sheet. Rows missing a map, agent or
// result are dropped before block partitioning.
func LoadRoster(ctx context.Context, path string) ([]model.RosterRow, error) {
	raw, err := ReadRaw(ctx, path)
	if err != nil {
		return nil, &model.SourceLoadError{Path: path, Err: err}
	}
	mapIdx := model.ColumnIndex(raw.Header, rosterMapCols...)
	agentIdx := model.ColumnIndex(raw.Header, rosterAgentCols...)
	resultIdx := model.ColumnIndex(raw.Header, rosterResultCols...)
	if mapIdx < 0 || agentIdx < 0 || resultIdx < 0 {
		return nil, &model.SourceLoadError{
			Path: path,
			Err:  fmt.Errorf("roster sheet needs map, agent and result columns, got %v", raw.Header),
		}
	}

	var out []model.RosterRow
	for _, row := range raw.Rows {
		m, a, r := row.Cell(mapIdx), row.Cell(agentIdx), row.Cell(resultIdx)
		if model.IsEmptyCell(m) || model.IsEmptyCell(a) || model.IsEmptyCell(r) {
			continue
		}
		out = append(out, model.RosterRow{
			Map:    strings.TrimSpace(m),
			Agent:  strings.TrimSpace(a),
			Result: strings.TrimSpace(r),
		})
	}
	return out, nil
}

// LoadPlayers reads the per-player performance sheet. Dates are normalized
// to ISO form using ref for the year when a cell has none.
func LoadPlayers(ctx context.Context, path string, ref time.Time) ([]model.PlayerRow, error) {
	raw, err := ReadRaw(ctx, path)
	if err != nil {
		return nil, &model.SourceLoadError{Path: path, Err: err}
	}
	return decodePlayers(raw, ref, path)
}

func decodePlayers(raw *Raw, ref time.Time, path string) ([]model.PlayerRow, error) {
	h := raw.Header
	agentIdx := model.ColumnIndex(h, playerAgentCols...)
	if agentIdx < 0 {
		return nil, &model.SourceLoadError{Path: path, Err: fmt.Errorf("player sheet has no agent column")}
	}
	var (
		nameIdx   = model.ColumnIndex(h, playerNameCols...)
		mapIdx    = model.ColumnIndex(h, playerMapCols...)
		dateIdx   = model.ColumnIndex(h, playerDateCols...)
		killIdx   = model.ColumnIndex(h, playerKillCols...)
		deathIdx  = model.ColumnIndex(h, playerDeathCols...)
		assistIdx = model.ColumnIndex(h, playerAssistCols...)
		roundIdx  = model.ColumnIndex(h, playerRoundCols...)
		acsIdx    = model.ColumnIndex(h, playerACSCols...)
		fkIdx     = model.ColumnIndex(h, playerFirstKCols...)
		plantIdx  = model.ColumnIndex(h, playerPlantCols...)
		kastIdx   = model.ColumnIndex(h, playerKASTCols...)
		hsIdx     = model.ColumnIndex(h, playerHSCols...)
	)

	var out []model.PlayerRow
	for _, row := range raw.Rows {
		agent := strings.TrimSpace(row.Cell(agentIdx))
		if model.IsEmptyCell(agent) {
			continue
		}
		p := model.PlayerRow{
			Player:     strings.TrimSpace(row.Cell(nameIdx)),
			Agent:      agent,
			Map:        strings.TrimSpace(row.Cell(mapIdx)),
			Kills:      model.ParseCount(row.Cell(killIdx)),
			Deaths:     model.ParseCount(row.Cell(deathIdx)),
			Assists:    model.ParseCount(row.Cell(assistIdx)),
			Rounds:     model.ParseCount(row.Cell(roundIdx)),
			FirstKills: model.ParseCount(row.Cell(fkIdx)),
			Plants:     model.ParseCount(row.Cell(plantIdx)),
			ACS:        numberOrNaN(row.Cell(acsIdx)),
			KASTPct:    numberOrNaN(row.Cell(kastIdx)),
			HSPct:      numberOrNaN(row.Cell(hsIdx)),
		}
		if d := row.Cell(dateIdx); !model.IsEmptyCell(d) {
			if iso, err := dates.ISO(d, ref); err == nil {
				p.Date = iso
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func numberOrNaN(s string) float64 {
	if v, ok := model.ParseNumber(s); ok {
		return v
	}
	return math.NaN()
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
