package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
	"github.com/pable/go-scrim-metrics/internal/report"
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show games, wins, draws and losses per map",
	Args:  cobra.NoArgs,
	RunE:  runOverview,
}

func init() {
	addRangeFlags(overviewCmd)
}

func runOverview(cmd *cobra.Command, args []string) error {
	table := loadScores(cmd.Context())
	if !requireRows(table) {
		return nil
	}
	f := aggregator.Filter{Start: viewStart, End: viewEnd}
	if err := f.Validate(table); err != nil {
		return err
	}
	rows, err := aggregator.MapSummary(table, f)
	if err != nil {
		return fmt.Errorf("map summary: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "No matches in the selected range.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Map Overview ===\n\n")
	report.PrintMapSummary(os.Stdout, rows)
	fmt.Fprintf(os.Stdout, "\n--- Win Rate Ranking ---\n\n")
	report.PrintMapRanking(os.Stdout, aggregator.RankByWinRate(rows))
	return nil
}
