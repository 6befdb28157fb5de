package identity_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/crew/internal/identity"
)

func TestProjectHash_StableAndShort(t *testing.T) {
	dir := t.TempDir()

	h1 := identity.ProjectHash(dir)
	h2 := identity.ProjectHash(dir)
	if h1 != h2 {
		t.Errorf("hash not stable: %s vs %s", h1, h2)
	}
	if len(h1) != 12 {
		t.Errorf("expected 12 hex chars, got %q", h1)
	}
	for _, c := range h1 {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("non-hex char %q in hash %q", c, h1)
		}
	}

	other := identity.ProjectHash(filepath.Join(dir, "sub"))
	if other == h1 {
		t.Error("different directories should hash differently")
	}
}

func TestIdentityFile_RoundTrip(t *testing.T) {
	wt := t.TempDir()

	id := &identity.CrewIdentity{
		TeammateName: "alice",
		ProjectRoot:  "/p/repo",
		Branch:       "feat/a",
		TeamName:     "core",
		ProfileName:  "dev",
		CreatedAt:    "2026-01-02T03:04:05Z",
	}
	if err := identity.WriteIdentityFile(wt, id); err != nil {
		t.Fatalf("WriteIdentityFile failed: %v", err)
	}

	got, err := identity.ReadIdentityFile(wt)
	if err != nil {
		t.Fatalf("ReadIdentityFile failed: %v", err)
	}
	if got.TeammateName != "alice" || got.Branch != "feat/a" || got.ProfileName != "dev" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestReadIdentityFile_StateDirFallback(t *testing.T) {
	wt := t.TempDir()
	stateDir := filepath.Join(wt, identity.StateDirName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := identity.WriteIdentityFile(stateDir, &identity.CrewIdentity{TeammateName: "bob"}); err != nil {
		t.Fatal(err)
	}
	// WriteIdentityFile wrote into the state dir; the reader must find it there.
	got, err := identity.ReadIdentityFile(wt)
	if err != nil {
		t.Fatalf("ReadIdentityFile failed: %v", err)
	}
	if got.TeammateName != "bob" {
		t.Errorf("expected bob, got %q", got.TeammateName)
	}
}

func TestResolveCrew_CWDFirst(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	wt := t.TempDir()
	if err := identity.WriteIdentityFile(wt, &identity.CrewIdentity{TeammateName: "alice"}); err != nil {
		t.Fatal(err)
	}

	id := identity.ResolveCrew(wt, "")
	if id == nil || id.TeammateName != "alice" {
		t.Fatalf("expected alice from CWD strategy, got %+v", id)
	}
}

func TestResolveCrew_EnvHint(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	wt := t.TempDir()
	if err := identity.WriteIdentityFile(wt, &identity.CrewIdentity{TeammateName: "bob"}); err != nil {
		t.Fatal(err)
	}
	t.Setenv(identity.WorktreeEnvVar, wt)

	id := identity.ResolveCrew(t.TempDir(), "")
	if id == nil || id.TeammateName != "bob" {
		t.Fatalf("expected bob from env hint, got %+v", id)
	}
}

func TestResolveCrew_RegistryByFilePath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(identity.WorktreeEnvVar, "")

	cwd := t.TempDir()
	wtA := t.TempDir()
	wtB := t.TempDir()
	for name, wt := range map[string]string{"alice": wtA, "bob": wtB} {
		if err := identity.WriteIdentityFile(wt, &identity.CrewIdentity{TeammateName: name}); err != nil {
			t.Fatal(err)
		}
	}

	hash := identity.ProjectHash(cwd)
	reg := &identity.Registry{}
	reg.Add(identity.RegistryEntry{Name: "alice", Branch: "feat/a", Path: wtA})
	reg.Add(identity.RegistryEntry{Name: "bob", Branch: "feat/b", Path: wtB})
	if err := identity.SaveRegistry(hash, reg); err != nil {
		t.Fatal(err)
	}

	// A file path inside bob's worktree picks bob.
	id := identity.ResolveCrew(cwd, filepath.Join(wtB, "src", "main.go"))
	if id == nil || id.TeammateName != "bob" {
		t.Fatalf("expected bob via file path hint, got %+v", id)
	}

	// No hint with two registered worktrees is ambiguous.
	if id := identity.ResolveCrew(cwd, ""); id != nil {
		t.Fatalf("expected nil for ambiguous lookup, got %+v", id)
	}

	// Single-entry registry needs no hint.
	reg.Remove("bob")
	if err := identity.SaveRegistry(hash, reg); err != nil {
		t.Fatal(err)
	}
	id = identity.ResolveCrew(cwd, "")
	if id == nil || id.TeammateName != "alice" {
		t.Fatalf("expected alice from single-entry registry, got %+v", id)
	}
}

func TestRegistry_AddRemoveFind(t *testing.T) {
	reg := &identity.Registry{}
	reg.Add(identity.RegistryEntry{Name: "alice", Branch: "feat/a", Path: "/w/a"})
	reg.Add(identity.RegistryEntry{Name: "alice", Branch: "feat/a2", Path: "/w/a2"})

	if len(reg.Worktrees) != 1 {
		t.Fatalf("Add should replace same-name entries, got %d", len(reg.Worktrees))
	}
	if got := reg.Find("alice"); got == nil || got.Branch != "feat/a2" {
		t.Errorf("Find returned %+v", got)
	}
	if !reg.Remove("alice") {
		t.Error("Remove should report true for existing entry")
	}
	if reg.Remove("alice") {
		t.Error("Remove should report false for missing entry")
	}
}

func TestDisabled(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	if identity.Disabled(nested) {
		t.Error("expected not disabled without marker")
	}

	if err := os.WriteFile(filepath.Join(root, identity.DisableMarkerName), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if !identity.Disabled(nested) {
		t.Error("expected disabled when a parent carries the marker")
	}
}
