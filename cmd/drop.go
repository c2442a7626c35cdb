package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dropForce bool

// dropCmd deletes the database file.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the scrim database",
	Long:  "Permanently delete the SQLite database. All stored cleaning runs will be lost. Re-run clean afterwards to rebuild.",
	Args:  cobra.NoArgs,
	RunE:  runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	path := appCfg.Paths.DB
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", path)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", path)
	return nil
}
