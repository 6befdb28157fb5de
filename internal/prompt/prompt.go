// Package prompt generates the lead and per-teammate spawn prompts that the
// user hands to the host agent. Generation is a pure function of the profile,
// team state, worktree map, config hash, and staleness threshold.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/teamstate"
)

// Input is everything prompt generation consumes.
type Input struct {
	ProfileName string
	TeamName    string
	ProjectRoot string
	ConfigHash  string
	StaleHours  float64
	Teammates   []config.Teammate
	Worktrees   map[string]string // teammate name -> worktree path
	Prev        *teamstate.TeamState
	Now         time.Time
}

// LeadPrompt emits the lead document: a resume prompt when a previous team
// state is being resumed, a fresh three-step launch script otherwise.
func LeadPrompt(in Input, resume bool) string {
	if resume && in.Prev != nil {
		return resumePrompt(in)
	}
	return freshPrompt(in)
}

func resumePrompt(in Input) string {
	var b strings.Builder

	hours := hoursSinceTeamActivity(in.Prev, in.Now)
	fmt.Fprintf(&b, "# Resume crew %q (profile %s)\n\n", in.TeamName, in.ProfileName)
	if hours >= 0 {
		fmt.Fprintf(&b, "Last activity %.1f hours ago.\n\n", hours)
	}

	for _, tm := range in.Teammates {
		prev := in.Prev.Teammates[tm.Name]
		wtPath := in.Worktrees[tm.Name]

		fmt.Fprintf(&b, "## %s\n", tm.Name)
		fmt.Fprintf(&b, "- Branch: %s\n", tm.Branch)
		if wtPath != "" {
			fmt.Fprintf(&b, "- Worktree: %s\n", wtPath)
		}

		if prev != nil && prev.AgentID != "" && !isStale(prev, in.StaleHours, in.Now) {
			fmt.Fprintf(&b, "- Agent: %s\n", prev.AgentID)
			fmt.Fprintf(&b, "- Action: resume agent %s and tell it to continue its task\n\n", prev.AgentID)
			continue
		}

		b.WriteString("- Agent: STALE — spawn fresh\n")
		b.WriteString("- Action: spawn a fresh teammate with the prompt below\n\n")
		b.WriteString(indentBlock(SpawnPrompt(in, tm), "  "))
		b.WriteString("\n")
	}

	return b.String()
}

func freshPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Launch crew %q (profile %s)\n\n", in.TeamName, in.ProfileName)
	b.WriteString("Follow these three steps in order.\n\n")

	b.WriteString("## Step 1 — create the team\n")
	fmt.Fprintf(&b, "Create a team container named %q.\n\n", in.TeamName)

	b.WriteString("## Step 2 — create one task per teammate\n")
	for _, tm := range in.Teammates {
		focus := tm.Focus
		if focus == "" {
			focus = "work on branch " + tm.Branch
		}
		fmt.Fprintf(&b, "- Task %q: %s\n", tm.Name, firstLine(focus))
	}
	b.WriteString("\n")

	b.WriteString("## Step 3 — spawn all teammates in parallel\n")
	b.WriteString("One spawn invocation per teammate, all in the same message:\n\n")
	for _, tm := range in.Teammates {
		fmt.Fprintf(&b, "### spawn %s\n", tm.Name)
		fmt.Fprintf(&b, "- name: %s\n", tm.Name)
		fmt.Fprintf(&b, "- team: %s\n", in.TeamName)
		if tm.SubagentType != "" {
			fmt.Fprintf(&b, "- subagent_type: %s\n", tm.SubagentType)
		}
		if tm.Mode != "" {
			fmt.Fprintf(&b, "- mode: %s\n", tm.Mode)
		}
		if tm.Model != "" {
			fmt.Fprintf(&b, "- model: %s\n", tm.Model)
		}
		b.WriteString("- prompt:\n\n")
		b.WriteString(indentBlock(SpawnPrompt(in, tm), "  "))
		b.WriteString("\n")
	}

	b.WriteString("Then assign each task to the teammate of the same name.\n")

	return b.String()
}

// SpawnPrompt builds the per-teammate prompt that establishes crew isolation:
// identity, path rules, focus, and the task workflow.
func SpawnPrompt(in Input, tm config.Teammate) string {
	wtPath := in.Worktrees[tm.Name]

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a teammate on crew %q.\n", tm.Name, in.TeamName)
	fmt.Fprintf(&b, "Your branch is %s.\n", tm.Branch)
	if wtPath != "" {
		fmt.Fprintf(&b, "Your worktree is %s — every file you touch lives under it.\n", wtPath)
	}
	b.WriteString("\n")

	if wtPath != "" {
		b.WriteString("Path rules (apply to every tool invocation):\n\n")
		b.WriteString("| Path | Allowed |\n")
		b.WriteString("|---|---|\n")
		fmt.Fprintf(&b, "| %s/** | yes |\n", wtPath)
		fmt.Fprintf(&b, "| %s/** | NO — the lead's checkout is off limits |\n", in.ProjectRoot)
		b.WriteString("| anywhere else | NO |\n\n")
	}

	if tm.Focus != "" {
		b.WriteString("Focus:\n")
		b.WriteString(substitutePlaceholders(tm.Focus, wtPath, in.ProjectRoot, tm.Name))
		b.WriteString("\n\n")
	}

	b.WriteString("Workflow:\n")
	b.WriteString("1. Claim your task.\n")
	b.WriteString("2. Work it inside your worktree, committing to your branch.\n")
	b.WriteString("3. Mark the task complete.\n")
	b.WriteString("4. Poll for the next available task; idle when none remain.\n")

	return b.String()
}

// substitutePlaceholders expands the placeholder tokens a focus text may use.
func substitutePlaceholders(text, wtPath, projectRoot, teammateName string) string {
	r := strings.NewReplacer(
		"{WORKTREE_PATH}", wtPath,
		"{PROJECT_ROOT}", projectRoot,
		"{TEAMMATE_NAME}", teammateName,
	)
	return r.Replace(text)
}

func hoursSinceTeamActivity(state *teamstate.TeamState, now time.Time) float64 {
	best := -1.0
	for _, tm := range state.Teammates {
		if h := tm.HoursSinceActive(now); h >= 0 && (best < 0 || h < best) {
			best = h
		}
	}
	return best
}

func isStale(tm *teamstate.TeammateState, staleHours float64, now time.Time) bool {
	h := tm.HoursSinceActive(now)
	return h < 0 || h > staleHours
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func indentBlock(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// SortTeammates orders teammates by name for deterministic prompt output.
func SortTeammates(teammates []config.Teammate) []config.Teammate {
	out := make([]config.Teammate, len(teammates))
	copy(out, teammates)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
