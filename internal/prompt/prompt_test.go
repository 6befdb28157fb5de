package prompt_test

import (
	"strings"
	"testing"
	"time"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/prompt"
	"github.com/example/crew/internal/teamstate"
)

func testInput() prompt.Input {
	return prompt.Input{
		ProfileName: "dev",
		TeamName:    "core",
		ProjectRoot: "/p/repo",
		ConfigHash:  "abcdef123456",
		StaleHours:  4,
		Teammates: []config.Teammate{
			{Name: "alice", Branch: "feat/a", Model: "sonnet", Mode: "bypassPermissions",
				SubagentType: "general-purpose", Focus: "Implement the parser in {WORKTREE_PATH}, you are {TEAMMATE_NAME}."},
			{Name: "bob", Branch: "feat/b", Role: "reviewer"},
		},
		Worktrees: map[string]string{
			"alice": "/p/repo-dev-feat--a",
			"bob":   "/p/repo-dev-feat--b",
		},
		Now: time.Now().UTC(),
	}
}

func TestSpawnPrompt_PathRulesAndPlaceholders(t *testing.T) {
	in := testInput()
	out := prompt.SpawnPrompt(in, in.Teammates[0])

	for _, want := range []string{
		"You are alice",
		"Your branch is feat/a",
		"/p/repo-dev-feat--a",
		"| /p/repo-dev-feat--a/** | yes |",
		"| /p/repo/** | NO",
		"Implement the parser in /p/repo-dev-feat--a, you are alice.",
		"1. Claim your task.",
		"4. Poll for the next available task",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("spawn prompt missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "{WORKTREE_PATH}") || strings.Contains(out, "{TEAMMATE_NAME}") {
		t.Errorf("placeholders not substituted:\n%s", out)
	}
}

func TestLeadPrompt_Fresh(t *testing.T) {
	in := testInput()
	out := prompt.LeadPrompt(in, false)

	for _, want := range []string{
		"# Launch crew \"core\" (profile dev)",
		"## Step 1 — create the team",
		"## Step 2 — create one task per teammate",
		"## Step 3 — spawn all teammates in parallel",
		"### spawn alice",
		"- subagent_type: general-purpose",
		"- mode: bypassPermissions",
		"- model: sonnet",
		"### spawn bob",
		"Then assign each task to the teammate of the same name.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("fresh prompt missing %q:\n%s", want, out)
		}
	}
}

func TestLeadPrompt_ResumeCarriesAgentIDs(t *testing.T) {
	in := testInput()
	now := in.Now
	in.Prev = &teamstate.TeamState{
		TeamName:    "core",
		ProfileName: "dev",
		Teammates: map[string]*teamstate.TeammateState{
			"alice": {Branch: "feat/a", AgentID: "agent-123",
				LastActive: now.Add(-time.Hour).Format(time.RFC3339)},
			"bob": {Branch: "feat/b", AgentID: "agent-456",
				LastActive: now.Add(-30 * time.Hour).Format(time.RFC3339)},
		},
	}

	out := prompt.LeadPrompt(in, true)

	if !strings.Contains(out, "# Resume crew \"core\"") {
		t.Errorf("expected resume header:\n%s", out)
	}
	if !strings.Contains(out, "agent-123") || !strings.Contains(out, "resume agent agent-123") {
		t.Errorf("fresh teammate should resume by agent id:\n%s", out)
	}
	// Bob is beyond the staleness window: no resume, a fresh spawn instead.
	if strings.Contains(out, "resume agent agent-456") {
		t.Errorf("stale teammate must not be resumed:\n%s", out)
	}
	if !strings.Contains(out, "STALE — spawn fresh") {
		t.Errorf("expected stale marker:\n%s", out)
	}
	if !strings.Contains(out, "Last activity 1.0 hours ago") {
		t.Errorf("expected last-activity header:\n%s", out)
	}
}

func TestLeadPrompt_IsPure(t *testing.T) {
	in := testInput()
	if prompt.LeadPrompt(in, false) != prompt.LeadPrompt(in, false) {
		t.Error("prompt generation must be deterministic over identical input")
	}
}

func TestSortTeammates(t *testing.T) {
	sorted := prompt.SortTeammates([]config.Teammate{{Name: "zoe"}, {Name: "al"}})
	if sorted[0].Name != "al" || sorted[1].Name != "zoe" {
		t.Errorf("unexpected order: %+v", sorted)
	}
}
