package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/model"
	"github.com/pable/go-scrim-metrics/internal/report"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about every stored cleaning run:
sheet and match counts, date range, distinct maps and teams, and the
win/draw/loss breakdown per map across all runs.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.GetDBOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.TotalSheets == 0 {
		fmt.Fprintln(os.Stdout, "No sheets stored yet. Run 'scrimmetrics clean <sheet>' to add one.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(os.Stdout, "  Sheets stored : %d\n", ov.TotalSheets)
	fmt.Fprintf(os.Stdout, "  Matches       : %d\n", ov.TotalMatches)
	fmt.Fprintf(os.Stdout, "  Date range    : %s → %s\n", ov.EarliestMatch, ov.LatestMatch)
	fmt.Fprintf(os.Stdout, "  Unique maps   : %d\n", ov.UniqueMaps)
	fmt.Fprintf(os.Stdout, "  Unique teams  : %d\n", ov.UniqueTeams)

	maps, err := db.GetMapStats()
	if err != nil {
		return fmt.Errorf("get map stats: %w", err)
	}
	if len(maps) == 0 {
		return nil
	}
	rows := make([]model.SummaryRow, len(maps))
	for i, m := range maps {
		rows[i] = model.SummaryRow{Key: m.MapName, Games: m.Wins + m.Draws + m.Losses, Wins: m.Wins, Draws: m.Draws, Losses: m.Losses}
	}
	fmt.Fprintf(os.Stdout, "\n--- Maps (decided matches) ---\n\n")
	report.PrintMapSummary(os.Stdout, rows)
	return nil
}
