package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/report"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the scrim database",
	Long: `Run an arbitrary SQL query against the scrim database and print results as a table.

Schema overview:
  sheets(hash, source, cleaned_at, header, record_count, marker_count,
    skipped_count, first_date, last_date)
  matches(sheet_hash, row_index, match_date, team, map_name, side, outcome, cells)

outcome is lowercased ("win", "draw", "loss" or ""). cells holds the full row
as a JSON array in header order; read a column with json_extract, e.g.:
  SELECT map_name, json_extract(cells, '$[5]') FROM matches`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	report.PrintQueryResult(os.Stdout, cols, rows)
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}
