package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/config"
	"github.com/pable/go-scrim-metrics/internal/logging"
)

var (
	cfgFile     string
	dbPath      string
	scoresPath  string
	rosterPath  string
	playersPath string
	logLevel    string

	appCfg *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scrimmetrics",
	Short: "Scrim sheet analytics tool",
	Long: `Clean date-sectioned scrim tracking sheets and compute map, round,
composition and agent win-rate analytics.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "path to YAML config file")
	pf.StringVar(&dbPath, "db", "", "path to SQLite database (default ~/.scrimmetrics/scrims.db)")
	pf.StringVar(&scoresPath, "scores", "", "cleaned scrim table (CSV/XLSX path or s3:// URI)")
	pf.StringVar(&rosterPath, "roster", "", "roster/composition sheet")
	pf.StringVar(&playersPath, "players", "", "player performance sheet")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(roundsCmd)
	rootCmd.AddCommand(compsCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// setup loads .env, the config file and the environment, applies flag
// overrides and installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg); err != nil {
		return err
	}
	appCfg = cfg

	logger = logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)
	return nil
}

// applyFlags overrides cfg with the persistent flags that were set and
// validates the result.
func applyFlags(cfg *config.Config) error {
	override(&cfg.Paths.DB, dbPath)
	override(&cfg.Paths.Cleaned, scoresPath)
	override(&cfg.Paths.Roster, rosterPath)
	override(&cfg.Paths.Players, playersPath)
	override(&cfg.Logging.Level, logLevel)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}
