package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/gitx"
	"github.com/example/crew/internal/identity"
	"github.com/example/crew/internal/prompt"
	"github.com/example/crew/internal/teamstate"
	"github.com/example/crew/internal/worktree"
)

// StartCmd returns the start command
func StartCmd() *cobra.Command {
	var fresh bool
	var crewFilter string

	cmd := &cobra.Command{
		Use:   "start [profile]",
		Short: "Provision worktrees and generate the crew launch prompt",
		Long: `End-to-end crew launch for a profile.

Loads and validates the crew config, provisions a worktree per teammate,
writes the worktree registry and team state, and prints the lead prompt
to hand to the host agent.

A previous session is resumed unless --fresh is given, the config hash
changed, or every teammate has gone stale.

Examples:
  crew start
  crew start dev --fresh`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileArg := ""
			if len(args) > 0 {
				profileArg = args[0]
			}
			return runStart(profileArg, crewFilter, fresh)
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "Force a fresh start even when resumable state exists")
	cmd.Flags().StringVar(&crewFilter, "crew", "", "Only start teammates of this crew within the profile")

	return cmd
}

func runStart(profileArg, crewFilter string, fresh bool) error {
	cwd, projectHash, err := projectContext()
	if err != nil {
		return err
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, msg := range errs {
			fmt.Fprintln(os.Stderr, "config error:", msg)
		}
		return fmt.Errorf("invalid crew config (%d errors)", len(errs))
	}

	profileName, team, teammates, err := config.ResolveProfile(cfg, profileArg, crewFilter)
	if err != nil {
		return err
	}
	configHash := config.Hash(cfg)
	staleHours := cfg.StaleHoursFor(profileName)

	git := gitx.New(cwd)
	if !gitx.Available() || !git.IsRepo() {
		return fmt.Errorf("%s is not a git repository; crew needs git worktrees", cwd)
	}
	mainBranch := cfg.Project.MainBranch
	if mainBranch == "" {
		mainBranch = git.DefaultBranch()
	}

	prev, err := teamstate.Load(projectHash, profileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	startFresh, reason := teamstate.ShouldStartFresh(prev, configHash, staleHours, fresh)
	fmt.Fprintf(os.Stderr, "%s\n", reason)

	// Provision worktrees. A failing teammate is reported and skipped so the
	// rest of the crew still launches.
	mgr := worktree.NewManager(cwd, projectHash)
	worktrees := map[string]string{}
	var launchable []config.Teammate
	for _, tm := range teammates {
		if !tm.UsesWorktree() {
			launchable = append(launchable, tm)
			continue
		}
		result, err := mgr.Provision(profileName, team.Name, mainBranch, tm)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: teammate %s: %v\n", tm.Name, err)
			continue
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", warning)
		}
		worktrees[tm.Name] = result.Path
		launchable = append(launchable, tm)
	}
	if len(launchable) == 0 {
		return fmt.Errorf("no teammate could be provisioned")
	}

	in := prompt.Input{
		ProfileName: profileName,
		TeamName:    team.Name,
		ProjectRoot: cwd,
		ConfigHash:  configHash,
		StaleHours:  staleHours,
		Teammates:   prompt.SortTeammates(launchable),
		Worktrees:   worktrees,
		Prev:        prev,
		Now:         time.Now().UTC(),
	}
	leadPrompt := prompt.LeadPrompt(in, !startFresh)

	if err := saveLeadPrompt(projectHash, profileName, leadPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	state := buildTeamState(team.Name, profileName, configHash, launchable, worktrees, prev, startFresh)
	for _, tm := range launchable {
		if state.SpawnPrompts == nil {
			state.SpawnPrompts = map[string]string{}
		}
		state.SpawnPrompts[tm.Name] = prompt.SpawnPrompt(in, tm)
	}
	if err := teamstate.Save(projectHash, state); err != nil {
		return err
	}

	fmt.Println(leadPrompt)
	return nil
}

// buildTeamState assembles the new team state, carrying agent ids and
// last-active timestamps forward for teammates that survive a resume.
func buildTeamState(teamName, profileName, configHash string, teammates []config.Teammate, worktrees map[string]string, prev *teamstate.TeamState, startFresh bool) *teamstate.TeamState {
	state := &teamstate.TeamState{
		TeamName:    teamName,
		ProfileName: profileName,
		ConfigHash:  configHash,
		Status:      teamstate.TeamActive,
		StartedAt:   time.Now().UTC().Format(time.RFC3339),
		Teammates:   map[string]*teamstate.TeammateState{},
	}

	for _, tm := range teammates {
		entry := &teamstate.TeammateState{
			Branch:       tm.Branch,
			WorktreePath: worktrees[tm.Name],
			Status:       teamstate.StatusPending,
		}
		if !startFresh && prev != nil {
			if old, ok := prev.Teammates[tm.Name]; ok {
				entry.AgentID = old.AgentID
				entry.LastActive = old.LastActive
				if old.Status != "" && old.Status != teamstate.StatusStopped {
					entry.Status = old.Status
				}
			}
		}
		state.Teammates[tm.Name] = entry
	}

	return state
}

func saveLeadPrompt(projectHash, profileName, leadPrompt string) error {
	dir, err := identity.ProjectStateDir(projectHash)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, profileName, "lead-prompt.md")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(leadPrompt), 0644); err != nil {
		return fmt.Errorf("failed to save lead prompt: %w", err)
	}
	return nil
}
