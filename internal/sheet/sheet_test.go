package sheet

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pable/go-scrim-metrics/internal/model"
	"github.com/pable/go-scrim-metrics/internal/normalizer"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadRaw_CSV(t *testing.T) {
	path := writeFile(t, "score.csv", "\xef\xbb\xbfTeam,Map,Side,Outcome\n3/1,,,\nTeamA,Ascent,Attack,Win\nTeamB\n")

	raw, err := ReadRaw(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Team", "Map", "Side", "Outcome"}, raw.Header)
	require.Len(t, raw.Rows, 3)
	assert.Equal(t, model.RawRow{"3/1", "", "", ""}, raw.Rows[0])
	assert.Equal(t, model.RawRow{"TeamB"}, raw.Rows[2])
}

func TestReadRaw_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Team", "Map", "Side", "Outcome"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"3/1"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"TeamA", "Ascent", "Attack", "Win"}))
	path := filepath.Join(t.TempDir(), "score.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	raw, err := ReadRaw(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Team", "Map", "Side", "Outcome"}, raw.Header)
	require.Len(t, raw.Rows, 2)
	assert.Equal(t, "3/1", raw.Rows[0].Cell(0))
	assert.Equal(t, "Ascent", raw.Rows[1].Cell(1))
}

func TestReadRaw_XLSXDateCells(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Team", "Map", "Side", "Outcome", "Atk PP %"}))

	shortDate, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Sheet1", "A2", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellStyle("Sheet1", "A2", "A2", shortDate))

	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"TeamA", "Ascent", "Attack", "Win", 0.55}))
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "E3", "E3", percent))

	// Default time style.
	require.NoError(t, f.SetCellValue("Sheet1", "A4", time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC)))

	custom := "dd/mm/yyyy"
	dayFirst, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Sheet1", "A5", time.Date(2024, time.April, 13, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellStyle("Sheet1", "A5", "A5", dayFirst))

	path := filepath.Join(t.TempDir(), "score.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	raw, err := ReadRaw(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, raw.Rows, 4)
	assert.Equal(t, "2024-03-01", raw.Rows[0].Cell(0))
	assert.Equal(t, "Ascent", raw.Rows[1].Cell(1))
	assert.Equal(t, "55%", raw.Rows[1].Cell(4))
	assert.Equal(t, "2024-03-08", raw.Rows[2].Cell(0))
	assert.Equal(t, "2024-04-13", raw.Rows[3].Cell(0))

	res, err := normalizer.Normalize(raw.Header, raw.Rows, normalizer.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, "2024-03-01", res.Table.Records[0].Date)
	assert.Len(t, res.Markers, 3)
}

func TestIsDateFormat(t *testing.T) {
	cases := map[string]bool{
		"dd/mm/yyyy":          true,
		"[$-409]mmmm d, yyyy": true,
		"yyyy-mm-dd hh:mm":    true,
		"0.0%":                false,
		"hh:mm":               false,
		`"day "0`:             false,
		"General":             false,
	}
	for code, want := range cases {
		if got := isDateFormat(code); got != want {
			t.Errorf("isDateFormat(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestReadRaw_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")
	_, err := ReadRaw(context.Background(), path)
	assert.Error(t, err)
}

func TestCleanedRoundTrip(t *testing.T) {
	table := &model.CleanedTable{
		Header: []string{"Team", "Map", "Side", "Outcome"},
		Records: []model.MatchRecord{
			{Date: "2024-03-01", Row: 1, Cells: []string{"TeamA", "Ascent", "Attack", "Win"}},
			{Date: "2024-03-02", Row: 3, Cells: []string{"TeamB", "Bind, B site", "Defence", ""}},
		},
	}
	path := filepath.Join(t.TempDir(), "out", "cleaned_score.csv")
	require.NoError(t, WriteCleaned(path, table))

	got, err := LoadCleaned(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, table.Header, got.Header)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, table.Records[1].Values(), got.Records[1].Values())
}

func TestEncodeCleaned(t *testing.T) {
	table := &model.CleanedTable{
		Header:  []string{"Team", "Map"},
		Records: []model.MatchRecord{{Date: "2024-03-01", Cells: []string{"TeamA", "Ascent"}}},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeCleaned(&buf, table))
	assert.Equal(t, "date,Team,Map\n2024-03-01,TeamA,Ascent\n", buf.String())
}

func TestLoadCleaned_MissingFileDegrades(t *testing.T) {
	table, err := LoadCleaned(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	require.NotNil(t, table)
	assert.Equal(t, 0, table.Len())

	var loadErr *model.SourceLoadError
	assert.True(t, errors.As(err, &loadErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadCleaned_RejectsRawSheet(t *testing.T) {
	path := writeFile(t, "score.csv", "Team,Map,Side,Outcome\nTeamA,Ascent,Attack,Win\n")
	table, err := LoadCleaned(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestLoadRoster(t *testing.T) {
	path := writeFile(t, "form.csv", "Column 1,Player,Agent,Result\n"+
		"Ascent,p1,Jett,Win\n"+
		"Ascent,p2,,Win\n"+
		"Ascent,p3,Sova,Win\n")

	rows, err := LoadRoster(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []model.RosterRow{
		{Map: "Ascent", Agent: "Jett", Result: "Win"},
		{Map: "Ascent", Agent: "Sova", Result: "Win"},
	}, rows)
}

func TestLoadRoster_MissingColumns(t *testing.T) {
	path := writeFile(t, "form.csv", "Map,Player\nAscent,p1\n")
	_, err := LoadRoster(context.Background(), path)
	var loadErr *model.SourceLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestLoadPlayers(t *testing.T) {
	path := writeFile(t, "players.csv", "Player,Agent,Map,Date,Kills,Deaths,Assists,Rounds,ACS,FK,Plants,KAST %\n"+
		"alpha,Jett,Ascent,3/1,20,15,4,24,245.5,5,1,75%\n"+
		"beta,Sova,Ascent,not a date,10,12,9,24,,1,0,\n"+
		",,Ascent,3/1,1,1,1,1,1,1,1,1\n")

	ref := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows, err := LoadPlayers(context.Background(), path, ref)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	a := rows[0]
	assert.Equal(t, "alpha", a.Player)
	assert.Equal(t, "2024-03-01", a.Date)
	assert.Equal(t, 20, a.Kills)
	assert.Equal(t, 24, a.Rounds)
	assert.Equal(t, 5, a.FirstKills)
	assert.InDelta(t, 245.5, a.ACS, 1e-9)
	assert.InDelta(t, 75.0, a.KASTPct, 1e-9)
	assert.True(t, math.IsNaN(a.HSPct))

	b := rows[1]
	assert.Equal(t, "", b.Date)
	assert.True(t, math.IsNaN(b.ACS))
}

func TestSplitS3URI(t *testing.T) {
	bucket, key, err := splitS3URI("s3://team-sheets/scrims/2024/score.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "team-sheets", bucket)
	assert.Equal(t, "scrims/2024/score.xlsx", key)

	for _, bad := range []string{"s3://", "s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, err := splitS3URI(bad)
		assert.Error(t, err, bad)
	}
}
