package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
	"github.com/pable/go-scrim-metrics/internal/report"
)

var (
	compsTop  int
	compsMaps bool
)

var compsCmd = &cobra.Command{
	Use:   "comps",
	Short: "Rank five-agent team compositions by win rate",
	Long: `Group the roster sheet into consecutive blocks of five rows. A block whose
rows share one map and one result is a composition; its agents are sorted and
joined into a key. Compositions are counted only when the cleaned match table,
filtered to the selected range and map, holds a match with the same map and
outcome.`,
	Args: cobra.NoArgs,
	RunE: runComps,
}

func init() {
	addRangeFlags(compsCmd)
	addMapFlag(compsCmd)
	compsCmd.Flags().IntVar(&compsTop, "top", 0, "number of compositions to show (default from config)")
	compsCmd.Flags().BoolVar(&compsMaps, "maps", false, "list the maps present in the roster sheet and exit")
}

func runComps(cmd *cobra.Command, args []string) error {
	roster := loadRoster(cmd.Context())
	if len(roster) == 0 {
		fmt.Fprintf(os.Stderr, "No roster rows loaded from %q. Set --roster or paths.roster.\n", appCfg.Paths.Roster)
		return nil
	}
	if compsMaps {
		fmt.Fprintln(os.Stdout, strings.Join(aggregator.CompositionMaps(roster), "\n"))
		return nil
	}

	table := loadScores(cmd.Context())
	if !requireRows(table) {
		return nil
	}
	f := viewFilter()
	if err := f.Validate(table); err != nil {
		return err
	}
	top := compsTop
	if top <= 0 {
		top = appCfg.Analysis.TopCompositions
	}
	rows, err := aggregator.Compositions(roster, table, f, top)
	if err != nil {
		return fmt.Errorf("compositions: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "No compositions matched the selected map and range.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Top %d Compositions (map: %s) ===\n\n", top, f.Map)
	report.PrintCompositions(os.Stdout, rows)
	return nil
}
