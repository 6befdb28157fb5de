package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/gc"
)

// GCCmd returns the gc command
func GCCmd() *cobra.Command {
	var deleteBranches bool
	var force bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove orphaned crew worktrees",
		Long: `Scan every project under the global crew state area for orphaned
worktrees: directory gone, no team state owns it, owning team stopped,
teammate stopped, or inactive past the staleness threshold.

Stale-but-running orphans are listed and skipped unless --force is given.

Examples:
  crew gc --dry-run
  crew gc --force --delete-branches`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, _, err := projectContext()
			if err != nil {
				return err
			}

			cfg, _ := config.Load(cwd)
			staleHours := gc.StaleHoursFromConfig(cfg)

			orphans, err := gc.FindOrphans(staleHours, time.Now().UTC())
			if err != nil {
				return err
			}
			if len(orphans) == 0 {
				fmt.Println("No orphaned worktrees.")
				return nil
			}

			var eligible []gc.Orphan
			for _, o := range orphans {
				fmt.Printf("%s  %s (%s) — %s, %.1f MB\n",
					o.ProjectHash, o.Path, o.Branch, o.Reason, float64(o.SizeBytes)/(1024*1024))
				if o.Reason == "stale" && !force {
					fmt.Println("  (skipped; use --force to remove stale-but-running worktrees)")
					continue
				}
				eligible = append(eligible, o)
			}

			results := gc.Reclaim(eligible, gc.Options{
				DeleteBranches: deleteBranches,
				DryRun:         dryRun,
			})

			removed := 0
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("✗ %s: %v\n", r.Orphan.Path, r.Err)
					continue
				}
				if r.Removed {
					removed++
				}
			}
			if dryRun {
				fmt.Printf("Dry run: %d worktrees would be removed.\n", len(eligible))
			} else {
				fmt.Printf("✓ Removed %d orphaned worktrees.\n", removed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteBranches, "delete-branches", false, "Also delete the orphan's branch")
	cmd.Flags().BoolVar(&force, "force", false, "Remove stale worktrees whose team is still active")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List orphans without removing anything")

	return cmd
}
