package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
	"github.com/pable/go-scrim-metrics/internal/model"
)

// SheetExists returns true if a cleaned sheet with the given hash is already stored.
func (db *DB) SheetExists(hash string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM sheets WHERE hash = ?", hash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertSheet stores a run and its match rows in one transaction. Storing the
// same hash again replaces the previous copy.
func (db *DB) InsertSheet(s model.SheetSummary, t *model.CleanedTable) error {
	header, err := json.Marshal(t.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM matches WHERE sheet_hash = ?", s.Hash); err != nil {
		return fmt.Errorf("clear matches: %w", err)
	}
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO sheets(hash, source, cleaned_at, header, record_count, marker_count, skipped_count, first_date, last_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Hash, s.Source, s.CleanedAt, string(header),
		s.Records, s.Markers, s.Skipped, s.FirstDate, s.LastDate,
	)
	if err != nil {
		return fmt.Errorf("insert sheet: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO matches(sheet_hash, row_index, match_date, team, map_name, side, outcome, cells)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	caps := aggregator.Detect(t.Header)
	for _, r := range t.Records {
		cells, err := json.Marshal(r.Cells)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", r.Row, err)
		}
		_, err = stmt.Exec(
			s.Hash, r.Row, r.Date,
			strings.TrimSpace(r.Cell(0)),
			strings.TrimSpace(r.Cell(caps.Map)),
			strings.TrimSpace(r.Cell(2)),
			strings.ToLower(strings.TrimSpace(r.Cell(caps.Outcome))),
			string(cells),
		)
		if err != nil {
			return fmt.Errorf("insert match row %d: %w", r.Row, err)
		}
	}
	return tx.Commit()
}

const sheetColumns = `hash, source, cleaned_at, record_count, marker_count, skipped_count, first_date, last_date`

func scanSheet(sc interface{ Scan(...any) error }) (model.SheetSummary, error) {
	var s model.SheetSummary
	err := sc.Scan(&s.Hash, &s.Source, &s.CleanedAt, &s.Records, &s.Markers, &s.Skipped, &s.FirstDate, &s.LastDate)
	return s, err
}

// ListSheets returns all stored runs, newest first.
func (db *DB) ListSheets() ([]model.SheetSummary, error) {
	rows, err := db.conn.Query(`SELECT ` + sheetColumns + ` FROM sheets ORDER BY cleaned_at DESC, hash`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SheetSummary
	for rows.Next() {
		s, err := scanSheet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSheetByPrefix finds the most recent run whose hash starts with the given
// prefix. It returns nil, nil when nothing matches.
func (db *DB) GetSheetByPrefix(prefix string) (*model.SheetSummary, error) {
	row := db.conn.QueryRow(`SELECT `+sheetColumns+` FROM sheets WHERE hash LIKE ? ORDER BY cleaned_at DESC LIMIT 1`, prefix+"%")
	s, err := scanSheet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadTable rebuilds the cleaned table of a stored run in source order.
func (db *DB) LoadTable(hash string) (*model.CleanedTable, error) {
	var header string
	err := db.conn.QueryRow("SELECT header FROM sheets WHERE hash = ?", hash).Scan(&header)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sheet %s not found", hash)
	}
	if err != nil {
		return nil, err
	}
	t := &model.CleanedTable{}
	if err := json.Unmarshal([]byte(header), &t.Header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT row_index, match_date, cells FROM matches
		WHERE sheet_hash = ? ORDER BY row_index`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r model.MatchRecord
		var cells string
		if err := rows.Scan(&r.Row, &r.Date, &cells); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cells), &r.Cells); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", r.Row, err)
		}
		t.Records = append(t.Records, r)
	}
	return t, rows.Err()
}

// DeleteSheet removes a run and its match rows.
func (db *DB) DeleteSheet(hash string) error {
	_, err := db.conn.Exec("DELETE FROM sheets WHERE hash = ?", hash)
	return err
}

// DBOverview is a high-level count of what the database holds.
type DBOverview struct {
	TotalSheets   int
	TotalMatches  int
	UniqueMaps    int
	UniqueTeams   int
	EarliestMatch string
	LatestMatch   string
}

// GetDBOverview summarizes every stored run.
func (db *DB) GetDBOverview() (DBOverview, error) {
	var ov DBOverview
	if err := db.conn.QueryRow("SELECT COUNT(1) FROM sheets").Scan(&ov.TotalSheets); err != nil {
		return ov, err
	}
	err := db.conn.QueryRow(`
		SELECT COUNT(1),
		       COUNT(DISTINCT NULLIF(map_name, '')),
		       COUNT(DISTINCT NULLIF(team, '')),
		       COALESCE(MIN(match_date), ''),
		       COALESCE(MAX(match_date), '')
		FROM matches`).
		Scan(&ov.TotalMatches, &ov.UniqueMaps, &ov.UniqueTeams, &ov.EarliestMatch, &ov.LatestMatch)
	return ov, err
}

// MapStat is the outcome breakdown of one map across all stored runs.
type MapStat struct {
	MapName string
	Matches int
	Wins    int
	Draws   int
	Losses  int
}

// GetMapStats returns per-map outcome counts across every stored run, most
// played first.
func (db *DB) GetMapStats() ([]MapStat, error) {
	rows, err := db.conn.Query(`
		SELECT map_name,
		       COUNT(1),
		       SUM(outcome = 'win'),
		       SUM(outcome = 'draw'),
		       SUM(outcome = 'loss')
		FROM matches
		WHERE map_name != ''
		GROUP BY map_name
		ORDER BY COUNT(1) DESC, map_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MapStat
	for rows.Next() {
		var m MapStat
		if err := rows.Scan(&m.MapName, &m.Matches, &m.Wins, &m.Draws, &m.Losses); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary query and returns column names and stringified rows.
func (db *DB) QueryRaw(query string, args ...any) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = cellString(v)
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
