package normalizer

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-scrim-metrics/internal/model"
)

var header = []string{"Team", "Map", "Side", "Outcome"}

func testOpts(buf *bytes.Buffer) Options {
	return Options{
		Logger: slog.New(slog.NewTextHandler(buf, nil)),
		Now:    func() time.Time { return time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestNormalize_SingleMarker(t *testing.T) {
	var logs bytes.Buffer
	rows := []model.RawRow{
		{"3/1", "", ""},
		{"TeamA", "Ascent", "Attack", "Win"},
		{"TeamB", "", "", ""},
	}

	res, err := Normalize(header, rows, testOpts(&logs))
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())

	rec := res.Table.Records[0]
	assert.Equal(t, []string{"2024-03-01", "TeamA", "Ascent", "Attack", "Win"}, rec.Values())
	assert.Equal(t, []string{"date", "Team", "Map", "Side", "Outcome"}, res.Table.Columns())

	require.Len(t, res.Markers, 1)
	assert.Equal(t, Marker{Row: 0, Raw: "3/1", Date: "2024-03-01"}, res.Markers[0])

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Row)
	assert.Contains(t, logs.String(), "date marker detected")
	assert.Contains(t, logs.String(), "skipping row")
}

func TestNormalize_NoMarker(t *testing.T) {
	var logs bytes.Buffer
	rows := []model.RawRow{
		{"TeamA", "Ascent", "Attack", "Win"},
		{"TeamA", "Bind", "Defence", "Loss"},
	}

	res, err := Normalize(header, rows, testOpts(&logs))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, model.ErrNoValidRecords))

	var empty *model.EmptyResultError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, 2, empty.Rows)
	assert.Equal(t, 0, empty.Markers)
}

func TestNormalize_EmptyInput(t *testing.T) {
	var logs bytes.Buffer
	_, err := Normalize(header, nil, testOpts(&logs))
	assert.ErrorIs(t, err, model.ErrNoValidRecords)
}

func TestNormalize_NearestPrecedingMarkerWins(t *testing.T) {
	var logs bytes.Buffer
	rows := []model.RawRow{
		{"TeamA", "Haven", "Attack", "Win"}, // before any marker
		{"3/1"},
		{"TeamA", "Ascent", "Attack", "Win"},
		{"TeamB", "Bind", "Defence", "Loss"},
		{"March 8", "", "", ""},
		{"TeamC", "Lotus", "Attack", "Draw"},
		{"", "", "", ""},
		{"TeamD", "Split", "Defence", "Win"},
	}

	res, err := Normalize(header, rows, testOpts(&logs))
	require.NoError(t, err)

	var got []string
	for _, r := range res.Table.Records {
		got = append(got, r.Date+"/"+r.Cell(1))
	}
	assert.Equal(t, []string{
		"2024-03-01/Ascent",
		"2024-03-01/Bind",
		"2024-03-08/Lotus",
		"2024-03-08/Split",
	}, got)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 0, res.Skipped[0].Row)
	assert.Equal(t, "no preceding date marker", res.Skipped[0].Reason)
	assert.Equal(t, 6, res.Skipped[1].Row)
}

func TestNormalize_DayFirstAndTimeCells(t *testing.T) {
	var logs bytes.Buffer
	rows := []model.RawRow{
		{"3/1", "", "", ""},
		{"TeamA", "Ascent", "Attack", "Win"},
		{"13/04", "", "", ""},
		{"TeamC", "Haven", "Attack", "Win"},
		{"10:30", "", "", ""},
		{"TeamB", "Bind", "Defence", "Loss"},
		{"25.12.2024", "", "", ""},
		{"TeamD", "Split", "Defence", "Draw"},
	}

	res, err := Normalize(header, rows, testOpts(&logs))
	require.NoError(t, err)

	var got []string
	for _, r := range res.Table.Records {
		got = append(got, r.Date+"/"+r.Cell(1))
	}
	assert.Equal(t, []string{
		"2024-03-01/Ascent",
		"2024-04-13/Haven",
		"2024-04-13/Bind",
		"2024-12-25/Split",
	}, got)

	require.Len(t, res.Markers, 3)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 4, res.Skipped[0].Row)
	assert.NotContains(t, logs.String(), "0000-")
}

func TestNormalize_DateWithTrailingCellsIsData(t *testing.T) {
	var logs bytes.Buffer
	rows := []model.RawRow{
		{"3/1", "", "", ""},
		// cell 0 parses as a date but other cells are filled: a data row,
		// with the date text kept in the team column.
		{"3/2", "Ascent", "Attack", "Win"},
	}

	res, err := Normalize(header, rows, testOpts(&logs))
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, "2024-03-01", res.Table.Records[0].Date)
	assert.Equal(t, "3/2", res.Table.Records[0].Cell(0))
	assert.Len(t, res.Markers, 1)
}

func TestNormalize_NaNCellsAreEmpty(t *testing.T) {
	var logs bytes.Buffer
	rows := []model.RawRow{
		{"2024-05-02", "NaN", "nan"},
		{"TeamA", "Ascent", "NaN", "Win"},
		{"TeamA", "Ascent", "Attack", "NaN"},
	}

	res, err := Normalize(header, rows, testOpts(&logs))
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, "2024-05-02", res.Table.Records[0].Date)
	assert.Equal(t, 2, res.Table.Records[0].Row)
}

func TestNormalize_AlignsToHeader(t *testing.T) {
	var logs bytes.Buffer
	rows := []model.RawRow{
		{"3/1"},
		{"TeamA", "Ascent", "Attack"},
		{"TeamB", "Bind", "Defence", "Loss", "extra"},
	}

	res, err := Normalize(header, rows, testOpts(&logs))
	require.NoError(t, err)
	require.Equal(t, 2, res.Table.Len())
	assert.Equal(t, []string{"TeamA", "Ascent", "Attack", ""}, res.Table.Records[0].Cells)
	assert.Equal(t, []string{"TeamB", "Bind", "Defence", "Loss"}, res.Table.Records[1].Cells)
}

func TestNormalize_DoesNotAliasInput(t *testing.T) {
	var logs bytes.Buffer
	rows := []model.RawRow{
		{"3/1"},
		{"TeamA", "Ascent", "Attack", "Win"},
	}
	hdr := append([]string(nil), header...)

	res, err := Normalize(hdr, rows, testOpts(&logs))
	require.NoError(t, err)

	rows[1][0] = "mutated"
	hdr[0] = "mutated"
	assert.Equal(t, "TeamA", res.Table.Records[0].Cell(0))
	assert.Equal(t, "Team", res.Table.Header[0])
}
