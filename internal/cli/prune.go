package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/crew/internal/hooks"
)

// PruneCmd returns the prune command
func PruneCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune [days]",
		Short: "Delete context records older than a retention window",
		Long: `Delete records whose last update is older than the given number of
days (default 30). The same pruning runs automatically at session start.

Examples:
  crew prune
  crew prune 7 --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days := hooks.DefaultRetentionDays
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("days must be a positive integer, got %q", args[0])
				}
				days = n
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			cutoff := time.Now().UTC().AddDate(0, 0, -days)

			if dryRun {
				count, err := st.CountOlderThan(context.Background(), cutoff)
				if err != nil {
					return err
				}
				fmt.Printf("Dry run: %d records older than %d days would be deleted.\n", count, days)
				return nil
			}

			pruned, err := st.Prune(context.Background(), cutoff)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Pruned %d records older than %d days.\n", pruned, days)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Count matching records without deleting")

	return cmd
}
