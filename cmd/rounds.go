package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
	"github.com/pable/go-scrim-metrics/internal/report"
)

var (
	roundsSort string
	roundsDesc bool
)

var roundsCmd = &cobra.Command{
	Use:   "rounds",
	Short: "Show per-map round insights: side win rates, post-plant, retake and pistols",
	Long: `Show per-map round insights for the selected map and date range.

Attack and defence win rates are derived from the starting side and the two
half win rates; round win rate is their mean. Post-plant and retake success
average the "Atk PP %" and "Def PP %" columns, ignoring unparseable cells.
Pistol win rate is pistol rounds won over two per match. Metrics whose
columns are absent from the sheet are skipped.`,
	Args: cobra.NoArgs,
	RunE: runRounds,
}

func init() {
	addRangeFlags(roundsCmd)
	addMapFlag(roundsCmd)
	roundsCmd.Flags().StringVar(&roundsSort, "sort", "map", "sort by: map, winrate, roundwr, postplant, retake, pistol")
	roundsCmd.Flags().BoolVar(&roundsDesc, "desc", false, "sort descending")
}

func runRounds(cmd *cobra.Command, args []string) error {
	table := loadScores(cmd.Context())
	if !requireRows(table) {
		return nil
	}
	f := viewFilter()
	if err := f.Validate(table); err != nil {
		return err
	}
	rows, warnings, err := aggregator.RoundInsights(table, f)
	if err != nil {
		return fmt.Errorf("round insights: %w", err)
	}
	for _, w := range warnings {
		logger.Debug("metric skipped", "metric", w.Metric, "column", w.Column)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "No matches for the selected map and range.")
		return nil
	}
	rows = aggregator.SortRounds(rows, aggregator.ParseRoundSortKey(roundsSort), roundsDesc)

	fmt.Fprintf(os.Stdout, "\n=== Round Insights ===\n\n")
	report.PrintRoundInsights(os.Stdout, rows)
	report.PrintWarnings(os.Stdout, warnings)

	if rows[0].HasPostPlant || rows[0].HasRetake {
		fmt.Fprintf(os.Stdout, "\n--- Post-plant / Retake ---\n\n")
		report.PrintPostPlant(os.Stdout, rows)
	}
	return nil
}
