package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/crew/internal/cli"
	"github.com/example/crew/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "crew",
		Short:   "crew - branch-aware context capture and multi-agent orchestration",
		Version: version.String(),
		Long: `crew persists coding-session context into a namespaced record store and
orchestrates teams of agents working in parallel git worktrees that share it.`,
	}

	// Lifecycle commands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.StartCmd())
	rootCmd.AddCommand(cli.StopCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.DoctorCmd())

	// Merge pilot
	rootCmd.AddCommand(cli.MergePreviewCmd())
	rootCmd.AddCommand(cli.MergeCmd())

	// Store maintenance
	rootCmd.AddCommand(cli.GCCmd())
	rootCmd.AddCommand(cli.PruneCmd())
	rootCmd.AddCommand(cli.StatsCmd())

	// Hook handlers (called by the host agent runtime)
	rootCmd.AddCommand(cli.HookCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
