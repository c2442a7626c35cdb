// Package normalizer turns a raw scrim tracking sheet, where date header rows
// are interleaved with match rows, into a date-stamped CleanedTable.
package normalizer

import (
	"log/slog"
	"time"

	"github.com/pable/go-scrim-metrics/internal/dates"
	"github.com/pable/go-scrim-metrics/internal/model"
)

// requiredCells is the number of leading columns (team, map, side) a data
// row must fill to become a MatchRecord.
const requiredCells = 3

// previewCells is how many leading cells are echoed in skip diagnostics.
const previewCells = 5

// Options controls a normalization run.
type Options struct {
	// Logger receives marker and skip diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// Now supplies the reference year for dates written without one.
	// Defaults to time.Now.
	Now func() time.Time
}

// Marker records a detected date section header.
type Marker struct {
	Row  int
	Raw  string
	Date string
}

// Result is the outcome of a successful run.
type Result struct {
	Table   *model.CleanedTable
	Markers []Marker
	Skipped []*model.MalformedRowError
}

// Normalize stamps every data row with the most recent date marker above it.
// Rows before the first marker, and rows missing any of their first three
// cells, are skipped. It fails with an *model.EmptyResultError when no row
// qualifies.
func Normalize(header []string, rows []model.RawRow, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ref := now()

	res := &Result{
		Table: &model.CleanedTable{Header: append([]string(nil), header...)},
	}
	var currentDate string

	for i, row := range rows {
		if date, ok := dateMarker(row, ref); ok {
			currentDate = date
			raw := row.Cell(0)
			res.Markers = append(res.Markers, Marker{Row: i, Raw: raw, Date: date})
			logger.Info("date marker detected",
				slog.String("raw", raw),
				slog.String("date", date),
				slog.Int("row", i))
			continue
		}

		reason := ""
		switch {
		case currentDate == "":
			reason = "no preceding date marker"
		case !hasRequiredCells(row):
			reason = "missing team, map or side"
		}
		if reason != "" {
			skip := &model.MalformedRowError{Row: i, Reason: reason, Preview: preview(row)}
			res.Skipped = append(res.Skipped, skip)
			logger.Warn("skipping row",
				slog.Int("row", i),
				slog.String("reason", reason),
				slog.Any("preview", skip.Preview))
			continue
		}

		res.Table.Records = append(res.Table.Records, model.MatchRecord{
			Date:  currentDate,
			Row:   i,
			Cells: align(row, len(header)),
		})
	}

	if len(res.Table.Records) == 0 {
		return nil, &model.EmptyResultError{Rows: len(rows) - len(res.Markers), Markers: len(res.Markers)}
	}
	return res, nil
}

// dateMarker reports whether row is a section header: a parseable date in
// cell 0 and nothing in any other cell.
func dateMarker(row model.RawRow, ref time.Time) (string, bool) {
	first := row.Cell(0)
	if model.IsEmptyCell(first) {
		return "", false
	}
	for _, c := range row[1:] {
		if !model.IsEmptyCell(c) {
			return "", false
		}
	}
	date, err := dates.ISO(first, ref)
	if err != nil {
		return "", false
	}
	return date, true
}

func hasRequiredCells(row model.RawRow) bool {
	for i := 0; i < requiredCells; i++ {
		if model.IsEmptyCell(row.Cell(i)) {
			return false
		}
	}
	return true
}

// align pads or truncates row to the header width.
func align(row model.RawRow, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func preview(row model.RawRow) []string {
	n := min(len(row), previewCells)
	return append([]string(nil), row[:n]...)
}
