package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/crew/internal/config"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

const multiProfileJSON = `{
	"profiles": {
		"dev": {
			"name": "core",
			"teammates": [
				{"name": "alice", "branch": "feat/a", "role": "developer"},
				{"name": "bob", "branch": "feat/b", "role": "reviewer"}
			]
		},
		"docs": {
			"name": "docs",
			"teammates": [{"name": "carol", "branch": "docs/main"}]
		}
	},
	"default": "dev",
	"project": {"main_branch": "main"},
	"stale_after_hours": 6
}`

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".crew-config.json", multiProfileJSON)

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Profiles) != 2 || cfg.Default != "dev" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Project.MainBranch != "main" {
		t.Errorf("expected main branch 'main', got %q", cfg.Project.MainBranch)
	}
	if cfg.StaleHours() != 6 {
		t.Errorf("expected stale hours 6, got %v", cfg.StaleHours())
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".crew-config.yaml", `
team:
  name: core
  teammates:
    - name: alice
      branch: feat/a
      role: developer
project:
  main_branch: main
`)

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Team == nil || cfg.Team.Name != "core" {
		t.Fatalf("unexpected team: %+v", cfg.Team)
	}
	if len(cfg.Team.Teammates) != 1 || cfg.Team.Teammates[0].Role != "developer" {
		t.Errorf("unexpected teammates: %+v", cfg.Team.Teammates)
	}
	if cfg.StaleHours() != config.DefaultStaleAfterHours {
		t.Errorf("expected default stale hours, got %v", cfg.StaleHours())
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := config.Load(t.TempDir()); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestHash_IgnoresWhitespaceAndKeyOrder(t *testing.T) {
	dir1 := t.TempDir()
	writeConfig(t, dir1, ".crew-config.json", multiProfileJSON)
	dir2 := t.TempDir()
	// Same config, different formatting and top-level key order.
	writeConfig(t, dir2, ".crew-config.json", `{"default":"dev","stale_after_hours":6,"project":{"main_branch":"main"},"profiles":{"docs":{"name":"docs","teammates":[{"name":"carol","branch":"docs/main"}]},"dev":{"name":"core","teammates":[{"name":"alice","branch":"feat/a","role":"developer"},{"name":"bob","branch":"feat/b","role":"reviewer"}]}}}`)

	cfg1, err := config.Load(dir1)
	if err != nil {
		t.Fatal(err)
	}
	cfg2, err := config.Load(dir2)
	if err != nil {
		t.Fatal(err)
	}

	h1, h2 := config.Hash(cfg1), config.Hash(cfg2)
	if h1 != h2 {
		t.Errorf("hash should be order-independent: %s vs %s", h1, h2)
	}
	if len(h1) != 12 {
		t.Errorf("expected 12 hex chars, got %q", h1)
	}

	// A semantic change must move the hash.
	cfg2.Profiles["dev"].Teammates[0].Branch = "feat/a2"
	if config.Hash(cfg2) == h1 {
		t.Error("hash should change when the config changes")
	}
}

func TestValidate(t *testing.T) {
	valid := &config.Config{
		Team: &config.Team{
			Name: "core",
			Teammates: []config.Teammate{
				{Name: "alice", Branch: "feat/a", Role: "developer"},
			},
		},
	}
	if errs := config.Validate(valid); len(errs) != 0 {
		t.Errorf("expected valid config, got %v", errs)
	}

	cases := []struct {
		name string
		cfg  *config.Config
	}{
		{"neither team nor profiles", &config.Config{}},
		{"both team and profiles", &config.Config{
			Team:     &config.Team{Name: "a", Teammates: []config.Teammate{{Name: "x", Branch: "b"}}},
			Profiles: map[string]*config.Team{"p": {Name: "p", Teammates: []config.Teammate{{Name: "y", Branch: "c"}}}},
		}},
		{"missing default profile", &config.Config{
			Profiles: map[string]*config.Team{"dev": {Name: "d", Teammates: []config.Teammate{{Name: "x", Branch: "b"}}}},
			Default:  "nope",
		}},
		{"empty team name", &config.Config{
			Team: &config.Team{Teammates: []config.Teammate{{Name: "x", Branch: "b"}}},
		}},
		{"no teammates", &config.Config{Team: &config.Team{Name: "core"}}},
		{"teammate missing branch", &config.Config{
			Team: &config.Team{Name: "core", Teammates: []config.Teammate{{Name: "x"}}},
		}},
		{"teammate missing name", &config.Config{
			Team: &config.Team{Name: "core", Teammates: []config.Teammate{{Branch: "b"}}},
		}},
		{"duplicate teammate names", &config.Config{
			Team: &config.Team{Name: "core", Teammates: []config.Teammate{
				{Name: "x", Branch: "a"}, {Name: "x", Branch: "b"},
			}},
		}},
		{"unknown role", &config.Config{
			Team: &config.Team{Name: "core", Teammates: []config.Teammate{{Name: "x", Branch: "b", Role: "wizard"}}},
		}},
	}

	for _, c := range cases {
		if errs := config.Validate(c.cfg); len(errs) == 0 {
			t.Errorf("%s: expected validation errors", c.name)
		}
	}
}

func TestResolveProfile_SingleTeamActsAsDefault(t *testing.T) {
	cfg := &config.Config{
		Team: &config.Team{
			Name:      "core",
			Teammates: []config.Teammate{{Name: "alice", Branch: "feat/a"}},
		},
	}

	name, team, teammates, err := config.ResolveProfile(cfg, "", "")
	if err != nil {
		t.Fatalf("ResolveProfile failed: %v", err)
	}
	if name != config.DefaultProfileName {
		t.Errorf("expected profile 'default', got %q", name)
	}
	if team.Name != "core" || len(teammates) != 1 {
		t.Errorf("unexpected resolution: %s %d", team.Name, len(teammates))
	}
	if teammates[0].Crew != "default" {
		t.Errorf("expected crew 'default', got %q", teammates[0].Crew)
	}
}

func TestResolveProfile_SelectionOrderAndErrors(t *testing.T) {
	cfg := &config.Config{
		Profiles: map[string]*config.Team{
			"beta":  {Name: "beta", Teammates: []config.Teammate{{Name: "b", Branch: "x"}}},
			"alpha": {Name: "alpha", Teammates: []config.Teammate{{Name: "a", Branch: "y"}}},
		},
	}

	// No arg, no default: first profile name in sorted order.
	name, _, _, err := config.ResolveProfile(cfg, "", "")
	if err != nil || name != "alpha" {
		t.Errorf("expected alpha, got %q (%v)", name, err)
	}

	cfg.Default = "beta"
	name, _, _, err = config.ResolveProfile(cfg, "", "")
	if err != nil || name != "beta" {
		t.Errorf("expected beta via default, got %q (%v)", name, err)
	}

	name, _, _, err = config.ResolveProfile(cfg, "alpha", "")
	if err != nil || name != "alpha" {
		t.Errorf("expected alpha via explicit arg, got %q (%v)", name, err)
	}

	if _, _, _, err = config.ResolveProfile(cfg, "missing", ""); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestResolveProfile_FlattensCrewsAndFilters(t *testing.T) {
	cfg := &config.Config{
		Team: &config.Team{
			Name: "core",
			Crews: []config.CrewGroup{
				{Name: "frontend", Teammates: []config.Teammate{{Name: "alice", Branch: "feat/a"}}},
				{Name: "backend", Teammates: []config.Teammate{{Name: "bob", Branch: "feat/b"}}},
			},
		},
	}

	_, _, all, err := config.ResolveProfile(cfg, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 teammates, got %d", len(all))
	}

	_, _, filtered, err := config.ResolveProfile(cfg, "", "backend")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].Name != "bob" || filtered[0].Crew != "backend" {
		t.Errorf("crew filter returned %+v", filtered)
	}
}

func TestApplyRole(t *testing.T) {
	roles := config.RolePresets()

	tm := config.ApplyRole(config.Teammate{
		Name: "alice", Branch: "feat/a", Role: "developer", Focus: "Own the parser.",
	}, roles)

	if tm.Model != "sonnet" || tm.Mode != "bypassPermissions" || tm.SubagentType != "general-purpose" {
		t.Errorf("role defaults not applied: %+v", tm)
	}
	if tm.Focus != "Implement features, write code, fix bugs in your worktree. Own the parser." {
		t.Errorf("focus not prefixed: %q", tm.Focus)
	}

	// Explicit fields override the preset.
	tm = config.ApplyRole(config.Teammate{
		Name: "bob", Branch: "feat/b", Role: "tester", Model: "opus",
	}, roles)
	if tm.Model != "opus" {
		t.Errorf("explicit model should win, got %q", tm.Model)
	}
	if tm.Focus != "Write and run tests. Ensure coverage for new features." {
		t.Errorf("expected bare prefix focus, got %q", tm.Focus)
	}

	// No role: teammate passes through untouched.
	tm = config.ApplyRole(config.Teammate{Name: "carol", Branch: "x"}, roles)
	if tm.Model != "" || tm.Focus != "" {
		t.Errorf("roleless teammate should be unchanged: %+v", tm)
	}
}

func TestRolePresets_UserOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	capsuleDir := filepath.Join(home, ".capsule")
	if err := os.MkdirAll(capsuleDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(capsuleDir, "roles.toml"), []byte(`
[scribe]
model = "haiku"
mode = "default"
subagent = "general-purpose"
focus_prefix = "Write documentation."

[developer]
model = "opus"
`), 0644); err != nil {
		t.Fatal(err)
	}

	roles := config.RolePresets()
	if _, ok := roles["scribe"]; !ok {
		t.Error("user-defined role missing")
	}
	if roles["developer"].Model != "opus" {
		t.Errorf("user override should win, got %q", roles["developer"].Model)
	}
	if roles["tester"].Model != "haiku" {
		t.Error("built-in roles should survive the merge")
	}
}
