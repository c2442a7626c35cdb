package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/report"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored cleaning runs",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	sheets, err := db.ListSheets()
	if err != nil {
		return fmt.Errorf("list sheets: %w", err)
	}
	if len(sheets) == 0 {
		fmt.Fprintln(os.Stdout, "No sheets stored yet. Run 'scrimmetrics clean <sheet>' to add one.")
		return nil
	}
	report.PrintSheetList(os.Stdout, sheets)
	return nil
}
