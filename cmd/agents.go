package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
	"github.com/pable/go-scrim-metrics/internal/report"
)

var agentsBenchmark bool

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Show per-agent performance and role benchmarks",
	Long: `Aggregate the player performance sheet by agent: kills, deaths, assists,
rounds, first kills, plants and average combat score, with K/D and
(K+A)/round ratios. With --benchmark, per-round stats are summed by role and
compared against fixed role benchmarks.`,
	Args: cobra.NoArgs,
	RunE: runAgents,
}

func init() {
	agentsCmd.Flags().StringVar(&viewPlayer, "player", "", "restrict to one player")
	agentsCmd.Flags().StringVar(&viewStart, "start", "", "first date to include (YYYY-MM-DD)")
	agentsCmd.Flags().StringVar(&viewEnd, "end", "", "last date to include (YYYY-MM-DD)")
	addMapFlag(agentsCmd)
	agentsCmd.Flags().BoolVar(&agentsBenchmark, "benchmark", false, "compare roles against benchmarks")
}

func runAgents(cmd *cobra.Command, args []string) error {
	players := loadPlayers(cmd.Context())
	if len(players) == 0 {
		fmt.Fprintf(os.Stderr, "No player rows loaded from %q. Set --players or paths.players.\n", appCfg.Paths.Players)
		return nil
	}

	f := viewFilter()
	aggs := aggregator.AgentSummary(players, f)
	if len(aggs) == 0 {
		fmt.Fprintln(os.Stdout, "No player rows matched the selection.")
		return nil
	}

	title := "All players"
	if f.Player != "" {
		title = f.Player
	}
	fmt.Fprintf(os.Stdout, "\n=== Agents: %s ===\n\n", title)
	report.PrintAgents(os.Stdout, aggs)

	if agentsBenchmark {
		cmp := aggregator.CompareRoles(aggs)
		if len(cmp) == 0 {
			fmt.Fprintln(os.Stdout, "\nNo rounds recorded for known roles.")
			return nil
		}
		fmt.Fprintf(os.Stdout, "\n--- Role Benchmarks (per round) ---\n\n")
		report.PrintRoleComparison(os.Stdout, cmp)
	}
	return nil
}
