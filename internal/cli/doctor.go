package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/db"
	"github.com/example/crew/internal/gitx"
	"github.com/example/crew/internal/health"
	"github.com/example/crew/internal/teamstate"
)

// CheckResult represents the outcome of a single environment check
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command
func DoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [profile]",
		Short: "Check the environment and teammate health",
		Long: `Environment health check plus per-teammate liveness classification.

Validates git availability, the capsule store, and the crew config, then
classifies every teammate of the selected profiles as active, idle,
crashed, unresponsive, or unknown.

Always exits 0; the output is the diagnosis.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, projectHash, err := projectContext()
			if err != nil {
				return err
			}

			results := []CheckResult{
				checkGit(cwd),
				checkStore(),
				checkConfig(cwd),
			}

			fmt.Println()
			fmt.Println("Check         Status")
			fmt.Println("────────────────────")
			for _, r := range results {
				fmt.Printf("%-13s %s\n", r.Name, r.Status)
			}
			for _, r := range results {
				if r.Status != "✓" && r.Details != "" {
					fmt.Printf("\n%s: %s\n", r.Name, r.Details)
				}
			}

			cfg, _ := config.Load(cwd)
			states, err := teamstate.LoadAll(projectHash)
			if err != nil || len(states) == 0 {
				fmt.Println("\nNo team state; nothing to classify.")
				return nil
			}
			if len(args) == 1 {
				state, ok := states[args[0]]
				if !ok {
					fmt.Printf("\nNo team state for profile %q.\n", args[0])
					return nil
				}
				states = map[string]*teamstate.TeamState{args[0]: state}
			}

			profiles := make([]string, 0, len(states))
			for name := range states {
				profiles = append(profiles, name)
			}
			sort.Strings(profiles)

			now := time.Now().UTC()
			for _, profile := range profiles {
				staleHours := config.DefaultStaleAfterHours
				if cfg != nil {
					staleHours = cfg.StaleHoursFor(profile)
				}
				printHealth(profile, health.Check(states[profile], staleHours, now))
			}
			return nil
		},
	}
}

func checkGit(cwd string) CheckResult {
	r := CheckResult{Name: "git"}
	if !gitx.Available() {
		r.Status = "✗"
		r.Details = "git not found in PATH"
		return r
	}
	if !gitx.New(cwd).IsRepo() {
		r.Status = "⚠"
		r.Details = "current directory is not a git repository"
		return r
	}
	r.Status = "✓"
	return r
}

func checkStore() CheckResult {
	r := CheckResult{Name: "capsule store"}
	if !db.Exists() {
		r.Status = "⚠"
		r.Details = "no store file yet; it is created on first capture"
		return r
	}
	if _, err := db.GetDB(); err != nil {
		r.Status = "✗"
		r.Details = err.Error()
		return r
	}
	r.Status = "✓"
	return r
}

func checkConfig(cwd string) CheckResult {
	r := CheckResult{Name: "crew config"}
	if !config.Exists(cwd) {
		r.Status = "⚠"
		r.Details = "no crew config; run 'crew init'"
		return r
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		r.Status = "✗"
		r.Details = err.Error()
		return r
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		r.Status = "✗"
		r.Details = fmt.Sprintf("%d validation errors; run 'crew start' to see them", len(errs))
		return r
	}
	r.Status = "✓"
	return r
}

func printHealth(profile string, reports []health.Report) {
	fmt.Printf("\n%s\n", color.New(color.Bold).Sprintf("Profile %s", profile))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TEAMMATE\tSTATUS\tLAST ACTIVE\tCOMMITS (24h)\tRECOMMENDATION")
	for _, r := range reports {
		lastActive := "never"
		if r.HoursSince >= 0 {
			lastActive = fmt.Sprintf("%.1fh ago", r.HoursSince)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			r.Teammate, colorHealth(r.Status), lastActive, r.RecentCommits, r.Recommendation)
	}
	w.Flush()
}

func colorHealth(status string) string {
	switch status {
	case health.Active:
		return color.New(color.FgHiGreen).Sprint(status)
	case health.Idle:
		return color.New(color.FgCyan).Sprint(status)
	case health.Crashed:
		return color.New(color.FgRed).Sprint(status)
	case health.Unresponsive:
		return color.New(color.FgYellow).Sprint(status)
	default:
		return status
	}
}
