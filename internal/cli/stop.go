package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/teamstate"
	"github.com/example/crew/internal/worktree"
)

// StopCmd returns the stop command
func StopCmd() *cobra.Command {
	var cleanup bool

	cmd := &cobra.Command{
		Use:   "stop [profile]",
		Short: "Stop a crew, optionally removing its worktrees",
		Long: `Mark a profile's team state as stopped.

Every teammate is set to stopped. With --cleanup the worktrees are removed
as well (symlinked shared state is unlinked first, always).

Examples:
  crew stop
  crew stop dev --cleanup`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileArg := ""
			if len(args) > 0 {
				profileArg = args[0]
			}
			return runStop(profileArg, cleanup)
		},
	}

	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Remove every worktree of the profile")

	return cmd
}

func runStop(profileArg string, cleanup bool) error {
	cwd, projectHash, err := projectContext()
	if err != nil {
		return err
	}

	profileName := profileArg
	if profileName == "" {
		profileName = config.DefaultProfileName
		if cfg, err := config.Load(cwd); err == nil {
			if name, _, _, err := config.ResolveProfile(cfg, "", ""); err == nil {
				profileName = name
			}
		}
	}

	state, err := teamstate.Load(projectHash, profileName)
	if err != nil {
		return err
	}
	if state == nil {
		fmt.Printf("No team state for profile %q; nothing to stop.\n", profileName)
		return nil
	}

	state.Status = teamstate.TeamStopped
	for _, tm := range state.Teammates {
		tm.Status = teamstate.StatusStopped
	}
	if err := teamstate.Save(projectHash, state); err != nil {
		return err
	}
	fmt.Printf("✓ Stopped crew %q (profile %s)\n", state.TeamName, profileName)

	if !cleanup {
		return nil
	}

	mgr := worktree.NewManager(cwd, projectHash)
	for name, tm := range state.Teammates {
		if tm.WorktreePath == "" {
			continue
		}
		if err := mgr.Remove(name, tm.WorktreePath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: teammate %s: %v\n", name, err)
			continue
		}
		fmt.Printf("✓ Removed worktree %s\n", tm.WorktreePath)
	}
	return nil
}
