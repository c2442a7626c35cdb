package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
	"github.com/pable/go-scrim-metrics/internal/model"
	"github.com/pable/go-scrim-metrics/internal/server"
	"github.com/pable/go-scrim-metrics/internal/sheet"
	"github.com/pable/go-scrim-metrics/internal/storage"
)

// View selection flags shared by the analytics commands.
var (
	viewStart  string
	viewEnd    string
	viewMap    string
	viewPlayer string
	viewSheet  string
)

func addRangeFlags(c *cobra.Command) {
	c.Flags().StringVar(&viewStart, "start", "", "first date to include (YYYY-MM-DD, must exist in the table)")
	c.Flags().StringVar(&viewEnd, "end", "", "last date to include (YYYY-MM-DD, must exist in the table)")
	c.Flags().StringVar(&viewSheet, "sheet", "", "read the match table from a stored run (hash prefix) instead of --scores")
}

func addMapFlag(c *cobra.Command) {
	c.Flags().StringVar(&viewMap, "map", aggregator.AllMaps, "map to include, or \"All\"")
}

func viewFilter() aggregator.Filter {
	return aggregator.Filter{Start: viewStart, End: viewEnd, Map: viewMap, Player: viewPlayer}
}

// openDB opens the configured database, creating its directory.
func openDB() (*storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(appCfg.Paths.DB), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(appCfg.Paths.DB)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

// loadScores returns the match table from --sheet or the cleaned file. Load
// failures are logged and yield an empty table.
func loadScores(ctx context.Context) *model.CleanedTable {
	if viewSheet != "" {
		t, err := loadStoredTable(viewSheet)
		if err != nil {
			logger.Warn("stored sheet unavailable", "sheet", viewSheet, "error", err)
			return &model.CleanedTable{}
		}
		return t
	}
	t, err := sheet.LoadCleaned(ctx, appCfg.Paths.Cleaned)
	if err != nil {
		warnLoad(err)
	}
	return t
}

func loadStoredTable(prefix string) (*model.CleanedTable, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	s, err := db.GetSheetByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("query sheet: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("no stored sheet with hash prefix %q", prefix)
	}
	return db.LoadTable(s.Hash)
}

func loadRoster(ctx context.Context) []model.RosterRow {
	if appCfg.Paths.Roster == "" {
		return nil
	}
	rows, err := sheet.LoadRoster(ctx, appCfg.Paths.Roster)
	if err != nil {
		warnLoad(err)
	}
	return rows
}

func loadPlayers(ctx context.Context) []model.PlayerRow {
	if appCfg.Paths.Players == "" {
		return nil
	}
	rows, err := sheet.LoadPlayers(ctx, appCfg.Paths.Players, time.Now())
	if err != nil {
		warnLoad(err)
	}
	return rows
}

// loadDataset loads every sheet, collecting load failures as warnings.
func loadDataset(ctx context.Context) *server.Dataset {
	d := &server.Dataset{}
	var err error
	if d.Scores, err = sheet.LoadCleaned(ctx, appCfg.Paths.Cleaned); err != nil {
		warnLoad(err)
		d.Warnings = append(d.Warnings, err.Error())
	}
	if appCfg.Paths.Roster != "" {
		if d.Roster, err = sheet.LoadRoster(ctx, appCfg.Paths.Roster); err != nil {
			warnLoad(err)
			d.Warnings = append(d.Warnings, err.Error())
		}
	}
	if appCfg.Paths.Players != "" {
		if d.Players, err = sheet.LoadPlayers(ctx, appCfg.Paths.Players, time.Now()); err != nil {
			warnLoad(err)
			d.Warnings = append(d.Warnings, err.Error())
		}
	}
	return d
}

func warnLoad(err error) {
	var le *model.SourceLoadError
	if errors.As(err, &le) {
		logger.Warn("source unavailable, continuing without it", "path", le.Path, "error", le.Err)
		return
	}
	logger.Warn("load failed", "error", err)
}

// requireRows reports a friendly message when the table is empty.
func requireRows(t *model.CleanedTable) bool {
	if t.Len() == 0 {
		fmt.Fprintf(os.Stderr, "No match rows loaded from %s. Run 'scrimmetrics clean <sheet>' first.\n", appCfg.Paths.Cleaned)
		return false
	}
	return true
}
