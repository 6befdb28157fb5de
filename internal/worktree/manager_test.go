package worktree_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/gitx"
	"github.com/example/crew/internal/identity"
	"github.com/example/crew/internal/worktree"
)

// initRepo creates a real repository with one commit on main. Skips the test
// when git is unavailable.
func initRepo(t *testing.T) string {
	t.Helper()
	if !gitx.Available() {
		t.Skip("git not available")
	}

	// Keep worktrees (created as siblings of the repo) inside the temp area.
	base := t.TempDir()
	root := filepath.Join(base, "repo")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("init", "-b", "main")
	run("-c", "user.email=crew@test", "-c", "user.name=crew", "commit", "--allow-empty", "-m", "init")

	return root
}

func TestManager_ProvisionAndRemove(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := initRepo(t)
	hash := identity.ProjectHash(root)

	mgr := worktree.NewManager(root, hash)
	tm := config.Teammate{Name: "alice", Branch: "feat/a"}

	result, err := mgr.Provision("dev", "core", "main", tm)
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	wantPath := root + "-dev-feat--a"
	if result.Path != wantPath {
		t.Errorf("worktree path = %q, want %q", result.Path, wantPath)
	}
	if result.Existed {
		t.Error("first provision should not report an existing worktree")
	}

	// Identity file is local at the worktree root.
	id, err := identity.ReadIdentityFile(result.Path)
	if err != nil {
		t.Fatalf("identity file missing: %v", err)
	}
	if id.TeammateName != "alice" || id.Branch != "feat/a" || id.ProfileName != "dev" || id.TeamName != "core" {
		t.Errorf("identity mismatch: %+v", id)
	}

	// Registry lists the worktree.
	reg, err := identity.LoadRegistry(hash)
	if err != nil {
		t.Fatal(err)
	}
	entry := reg.Find("alice")
	if entry == nil || entry.Branch != "feat/a" || entry.Path != result.Path {
		t.Errorf("registry entry wrong: %+v", entry)
	}

	// The new branch was cut from main and checked out in the worktree.
	branch, err := gitx.New(result.Path).CurrentBranch()
	if err != nil || branch != "feat/a" {
		t.Errorf("worktree branch = %q (%v)", branch, err)
	}

	// Idempotent re-provision.
	again, err := mgr.Provision("dev", "core", "main", tm)
	if err != nil {
		t.Fatalf("re-provision failed: %v", err)
	}
	if !again.Existed {
		t.Error("re-provision should report the existing worktree")
	}

	// Removal drops the directory and the registry entry.
	if err := mgr.Remove("alice", result.Path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(result.Path); !os.IsNotExist(err) {
		t.Error("worktree directory should be gone")
	}
	reg, err = identity.LoadRegistry(hash)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Find("alice") != nil {
		t.Error("registry entry should be removed")
	}
}

func TestManager_ProvisionRefusesForeignDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := initRepo(t)
	hash := identity.ProjectHash(root)

	wtPath := worktree.ResolvePath(root, "dev", "feat/a")
	if err := os.MkdirAll(wtPath, 0755); err != nil {
		t.Fatal(err)
	}

	mgr := worktree.NewManager(root, hash)
	_, err := mgr.Provision("dev", "core", "main", config.Teammate{Name: "alice", Branch: "feat/a"})
	if err == nil {
		t.Fatal("expected error for a destination that is not a registered worktree")
	}
}

func TestManager_SharedStateSurvivesRemove(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := initRepo(t)
	hash := identity.ProjectHash(root)

	sharedFile := filepath.Join(root, identity.StateDirName, "skills", "review.md")
	if err := os.MkdirAll(filepath.Dir(sharedFile), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(sharedFile, []byte("skill"), 0644); err != nil {
		t.Fatal(err)
	}

	mgr := worktree.NewManager(root, hash)
	result, err := mgr.Provision("default", "core", "main", config.Teammate{Name: "bob", Branch: "feat/b"})
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	link := filepath.Join(result.Path, identity.StateDirName, "skills")
	if info, err := os.Lstat(link); err != nil || info.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("expected skills symlink in worktree state dir: %v", err)
	}

	if err := mgr.Remove("bob", result.Path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	data, err := os.ReadFile(sharedFile)
	if err != nil || string(data) != "skill" {
		t.Fatalf("shared state damaged by removal: %v %q", err, data)
	}
}
