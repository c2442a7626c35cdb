package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics as a JSON API",
	Long: `Load the cleaned table, roster and player sheets once and serve map,
round, composition and agent views over HTTP under /api. Missing sheets are
reported by /api/health and degrade their views to empty results.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := appCfg.Server
	override(&cfg.Addr, serveAddr)

	data := loadDataset(ctx)
	logger.Info("dataset loaded",
		"matches", data.Scores.Len(),
		"roster_rows", len(data.Roster),
		"player_rows", len(data.Players),
		"warnings", len(data.Warnings))

	return server.New(data, appCfg.Analysis.TopCompositions, logger).ListenAndServe(ctx, cfg)
}
