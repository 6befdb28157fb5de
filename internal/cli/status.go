package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/crew/internal/teamstate"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [profile]",
		Short: "Show crew team state",
		Long:  `Pretty-print a profile's team state, or all profiles when omitted.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, projectHash, err := projectContext()
			if err != nil {
				return err
			}

			states, err := teamstate.LoadAll(projectHash)
			if err != nil {
				fmt.Println("No crew state for this project.")
				return nil //nolint:nilerr // read-only path always exits 0
			}
			if len(args) == 1 {
				state, ok := states[args[0]]
				if !ok {
					fmt.Printf("No team state for profile %q.\n", args[0])
					return nil
				}
				states = map[string]*teamstate.TeamState{args[0]: state}
			}
			if len(states) == 0 {
				fmt.Println("No crew state for this project. Run: crew start")
				return nil
			}

			profiles := make([]string, 0, len(states))
			for name := range states {
				profiles = append(profiles, name)
			}
			sort.Strings(profiles)

			now := time.Now().UTC()
			for _, profile := range profiles {
				printTeamState(profile, states[profile], now)
			}
			return nil
		},
	}
}

func printTeamState(profile string, state *teamstate.TeamState, now time.Time) {
	header := color.New(color.Bold).Sprintf("%s", state.TeamName)
	fmt.Printf("\n%s  (profile: %s, %s, config %s)\n",
		header, profile, colorTeamStatus(state.Status), state.ConfigHash)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TEAMMATE\tSTATUS\tLAST ACTIVE\tBRANCH\tWORKTREE\tAGENT")
	fmt.Fprintln(w, "--------\t------\t-----------\t------\t--------\t-----")

	names := make([]string, 0, len(state.Teammates))
	for name := range state.Teammates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tm := state.Teammates[name]
		lastActive := "never"
		if h := tm.HoursSinceActive(now); h >= 0 {
			lastActive = fmt.Sprintf("%.1fh ago", h)
		}
		agent := tm.AgentID
		if agent == "" {
			agent = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			name, colorTeammateStatus(tm.Status), lastActive, tm.Branch,
			filepath.Base(tm.WorktreePath), agent)
	}
	w.Flush()
}

func colorTeamStatus(status string) string {
	if status == teamstate.TeamActive {
		return color.New(color.FgHiGreen).Sprint(status)
	}
	return color.New(color.FgYellow).Sprint(status)
}

func colorTeammateStatus(status string) string {
	switch status {
	case teamstate.StatusActive:
		return color.New(color.FgHiGreen).Sprint(status)
	case teamstate.StatusIdle:
		return color.New(color.FgCyan).Sprint(status)
	case teamstate.StatusPending:
		return color.New(color.FgYellow).Sprint(status)
	case teamstate.StatusStopped:
		return color.New(color.FgRed).Sprint(status)
	default:
		return status
	}
}
