package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
	"github.com/pable/go-scrim-metrics/internal/model"
	"github.com/pable/go-scrim-metrics/internal/normalizer"
	"github.com/pable/go-scrim-metrics/internal/report"
	"github.com/pable/go-scrim-metrics/internal/sheet"
)

var (
	cleanOut     string
	cleanNoStore bool
	cleanYear    int
)

var cleanCmd = &cobra.Command{
	Use:   "clean [raw-sheet]",
	Short: "Normalize a raw scrim sheet and store the cleaned table",
	Long: `Read a raw scrim tracking sheet whose match rows sit under date header rows,
stamp every match row with its section date, write the cleaned CSV and store
the run in the database. Rows before the first date header, and rows missing
team, map or side, are skipped. The sheet may be CSV, XLSX or an s3:// URI.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanOut, "out", "o", "", "cleaned CSV output path (default from config)")
	cleanCmd.Flags().BoolVar(&cleanNoStore, "no-store", false, "do not record the run in the database")
	cleanCmd.Flags().IntVar(&cleanYear, "year", 0, "year for dates written without one (default: current year)")
}

func runClean(cmd *cobra.Command, args []string) error {
	src := appCfg.Paths.RawSheet
	if len(args) == 1 {
		src = args[0]
	}
	out := appCfg.Paths.Cleaned
	if cleanOut != "" {
		out = cleanOut
	}

	raw, err := sheet.ReadRaw(cmd.Context(), src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}

	opts := normalizer.Options{Logger: logger}
	if cleanYear > 0 {
		ref := time.Date(cleanYear, time.January, 1, 0, 0, 0, 0, time.UTC)
		opts.Now = func() time.Time { return ref }
	}
	res, err := normalizer.Normalize(raw.Header, raw.Rows, opts)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", src, err)
	}
	table := res.Table

	if err := sheet.WriteCleaned(out, table); err != nil {
		return fmt.Errorf("write cleaned table: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Cleaned %d matches (%d date sections, %d rows skipped)\n",
		table.Len(), len(res.Markers), len(res.Skipped))
	fmt.Fprintf(os.Stdout, "Total matches with an outcome: %d\n", countOutcomes(table))
	fmt.Fprintf(os.Stdout, "Saved to %s\n", out)

	if !cleanNoStore {
		if err := storeRun(src, res); err != nil {
			return err
		}
	}

	if rows, err := aggregator.MapSummary(table, aggregator.Filter{}); err == nil && len(rows) > 0 {
		fmt.Fprintln(os.Stdout)
		report.PrintMapSummary(os.Stdout, rows)
	}
	return nil
}

func storeRun(src string, res *normalizer.Result) error {
	hash, err := tableHash(res.Table)
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	exists, err := db.SheetExists(hash)
	if err != nil {
		return fmt.Errorf("check sheet: %w", err)
	}
	if exists {
		fmt.Fprintf(os.Stdout, "Sheet %s already stored.\n", hash[:12])
		return nil
	}

	dates := res.Table.Dates()
	summary := model.SheetSummary{
		Hash:      hash,
		Source:    src,
		CleanedAt: time.Now().UTC().Format(time.RFC3339),
		Records:   res.Table.Len(),
		Markers:   len(res.Markers),
		Skipped:   len(res.Skipped),
	}
	if len(dates) > 0 {
		summary.FirstDate, summary.LastDate = dates[0], dates[len(dates)-1]
	}
	if err := db.InsertSheet(summary, res.Table); err != nil {
		return fmt.Errorf("insert sheet: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Stored as %s\n", hash[:12])
	return nil
}

// tableHash identifies a cleaned table by the sha256 of its CSV encoding.
func tableHash(t *model.CleanedTable) (string, error) {
	h := sha256.New()
	if err := sheet.EncodeCleaned(h, t); err != nil {
		return "", fmt.Errorf("hash table: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func countOutcomes(t *model.CleanedTable) int {
	idx := model.ColumnIndex(t.Header, aggregator.OutcomeColumns...)
	if idx < 0 {
		return 0
	}
	n := 0
	for _, r := range t.Records {
		if !model.IsEmptyCell(r.Cell(idx)) {
			n++
		}
	}
	return n
}
