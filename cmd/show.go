package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
	"github.com/pable/go-scrim-metrics/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show <hash-prefix>",
	Short: "Show a stored cleaning run by hash prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := db.GetSheetByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("query sheet: %w", err)
	}
	if s == nil {
		fmt.Fprintf(os.Stderr, "No sheet found with hash prefix %q\n", prefix)
		return nil
	}
	table, err := db.LoadTable(s.Hash)
	if err != nil {
		return fmt.Errorf("load table: %w", err)
	}

	report.PrintSheetSummary(os.Stdout, *s)
	if rows, err := aggregator.MapSummary(table, aggregator.Filter{}); err == nil && len(rows) > 0 {
		report.PrintMapSummary(os.Stdout, rows)
	}
	rounds, warnings, err := aggregator.RoundInsights(table, aggregator.Filter{Map: aggregator.AllMaps})
	if err != nil || len(rounds) == 0 {
		return nil
	}
	fmt.Fprintf(os.Stdout, "\n--- Round Insights ---\n\n")
	report.PrintRoundInsights(os.Stdout, rounds)
	report.PrintWarnings(os.Stdout, warnings)
	return nil
}
