package gc_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/crew/internal/gc"
	"github.com/example/crew/internal/identity"
	"github.com/example/crew/internal/teamstate"
)

const testHash = "abc123def456"

func setupProject(t *testing.T, status, tmStatus, lastActive string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	wt := t.TempDir()
	if err := os.WriteFile(filepath.Join(wt, "file.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	reg := &identity.Registry{}
	reg.Add(identity.RegistryEntry{Name: "alice", Branch: "feat/a", Path: wt})
	if err := identity.SaveRegistry(testHash, reg); err != nil {
		t.Fatal(err)
	}

	state := &teamstate.TeamState{
		TeamName:    "core",
		ProfileName: "dev",
		Status:      status,
		Teammates: map[string]*teamstate.TeammateState{
			"alice": {Branch: "feat/a", WorktreePath: wt, Status: tmStatus, LastActive: lastActive},
		},
	}
	if err := teamstate.Save(testHash, state); err != nil {
		t.Fatal(err)
	}
	return wt
}

func TestFindProjectOrphans(t *testing.T) {
	now := time.Now().UTC()
	recent := now.Add(-time.Hour).Format(time.RFC3339)
	stale := now.Add(-10 * time.Hour).Format(time.RFC3339)

	t.Run("healthy teammate is not an orphan", func(t *testing.T) {
		setupProject(t, teamstate.TeamActive, teamstate.StatusActive, recent)
		if orphans := gc.FindProjectOrphans(testHash, 4, now); len(orphans) != 0 {
			t.Errorf("expected no orphans, got %v", orphans)
		}
	})

	t.Run("stopped team orphans its worktrees", func(t *testing.T) {
		setupProject(t, teamstate.TeamStopped, teamstate.StatusIdle, recent)
		orphans := gc.FindProjectOrphans(testHash, 4, now)
		if len(orphans) != 1 || orphans[0].Reason != "team stopped" {
			t.Errorf("expected team-stopped orphan, got %v", orphans)
		}
		if orphans[0].SizeBytes == 0 {
			t.Error("expected non-zero disk size")
		}
	})

	t.Run("stopped teammate", func(t *testing.T) {
		setupProject(t, teamstate.TeamActive, teamstate.StatusStopped, recent)
		orphans := gc.FindProjectOrphans(testHash, 4, now)
		if len(orphans) != 1 || orphans[0].Reason != "teammate stopped" {
			t.Errorf("expected teammate-stopped orphan, got %v", orphans)
		}
	})

	t.Run("stale teammate", func(t *testing.T) {
		setupProject(t, teamstate.TeamActive, teamstate.StatusActive, stale)
		orphans := gc.FindProjectOrphans(testHash, 4, now)
		if len(orphans) != 1 || orphans[0].Reason != "stale" {
			t.Errorf("expected stale orphan, got %v", orphans)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		wt := setupProject(t, teamstate.TeamActive, teamstate.StatusActive, recent)
		if err := os.RemoveAll(wt); err != nil {
			t.Fatal(err)
		}
		orphans := gc.FindProjectOrphans(testHash, 4, now)
		if len(orphans) != 1 || orphans[0].Reason != "directory missing" {
			t.Errorf("expected missing-directory orphan, got %v", orphans)
		}
	})
}

func TestFindOrphans_ScansAllProjects(t *testing.T) {
	setupProject(t, teamstate.TeamStopped, teamstate.StatusStopped, "")

	orphans, err := gc.FindOrphans(4, time.Now().UTC())
	if err != nil {
		t.Fatalf("FindOrphans failed: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ProjectHash != testHash {
		t.Errorf("expected one orphan for %s, got %v", testHash, orphans)
	}
}

func TestFindOrphans_EmptyStateArea(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	orphans, err := gc.FindOrphans(4, time.Now().UTC())
	if err != nil || orphans != nil {
		t.Errorf("expected nothing on empty area, got %v, %v", orphans, err)
	}
}

func TestReclaim_RemovesWorktreeAndRegistryEntry(t *testing.T) {
	now := time.Now().UTC()
	wt := setupProject(t, teamstate.TeamStopped, teamstate.StatusStopped, "")

	orphans := gc.FindProjectOrphans(testHash, 4, now)
	if len(orphans) != 1 {
		t.Fatalf("expected 1 orphan, got %d", len(orphans))
	}

	results := gc.Reclaim(orphans, gc.Options{})
	if len(results) != 1 || !results[0].Removed || results[0].Err != nil {
		t.Fatalf("unexpected results: %+v", results)
	}

	if _, err := os.Stat(wt); !os.IsNotExist(err) {
		t.Error("worktree directory should be gone")
	}
	reg, err := identity.LoadRegistry(testHash)
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.Worktrees) != 0 {
		t.Errorf("registry entry should be cleared, got %v", reg.Worktrees)
	}

	// TeamState is untouched by GC.
	state, err := teamstate.Load(testHash, "dev")
	if err != nil || state == nil {
		t.Errorf("team state should survive GC: %v %v", state, err)
	}

	// Nothing left to find.
	if orphans := gc.FindProjectOrphans(testHash, 4, now); len(orphans) != 0 {
		t.Errorf("expected no orphans after reclaim, got %v", orphans)
	}
}

func TestReclaim_DryRun(t *testing.T) {
	now := time.Now().UTC()
	wt := setupProject(t, teamstate.TeamStopped, teamstate.StatusStopped, "")

	orphans := gc.FindProjectOrphans(testHash, 4, now)
	results := gc.Reclaim(orphans, gc.Options{DryRun: true})
	if len(results) != 1 || results[0].Removed {
		t.Fatalf("dry run must not remove anything: %+v", results)
	}
	if _, err := os.Stat(wt); err != nil {
		t.Error("worktree should still exist after dry run")
	}
}

func TestInferProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	// Default-profile suffix.
	if got := gc.InferProjectRoot(root+"-feat--a", "feat/a"); got != root {
		t.Errorf("default suffix: got %q, want %q", got, root)
	}
	// Named-profile suffix.
	if got := gc.InferProjectRoot(root+"-dev-feat--a", "feat/a"); got != root {
		t.Errorf("profile suffix: got %q, want %q", got, root)
	}
	// Unrelated path with no git dir anywhere relevant.
	if got := gc.InferProjectRoot(filepath.Join(t.TempDir(), "x-y"), "z"); got != "" {
		t.Errorf("expected no root, got %q", got)
	}
}
