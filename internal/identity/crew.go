package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StateDirName is the per-project state directory inside a checkout or
// worktree (shared tooling symlinks plus session-local files).
const StateDirName = ".capsule"

// IdentityFileName is the crew identity file written at a worktree root
// during provisioning. Always a local file, never a symlink.
const IdentityFileName = "crew-identity.json"

// WorktreeEnvVar points at a worktree path when the process runs outside it.
const WorktreeEnvVar = "CREW_WORKTREE"

// CrewIdentity identifies the teammate a worktree belongs to.
type CrewIdentity struct {
	TeammateName string `json:"teammate_name"`
	ProjectRoot  string `json:"project_root"`
	Branch       string `json:"branch"`
	TeamName     string `json:"team_name"`
	ProfileName  string `json:"profile_name"`
	CreatedAt    string `json:"created_at"`
}

// WriteIdentityFile writes crew-identity.json at the worktree root.
func WriteIdentityFile(worktreePath string, id *CrewIdentity) error {
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal crew identity: %w", err)
	}
	path := filepath.Join(worktreePath, IdentityFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write crew identity: %w", err)
	}
	return nil
}

// ReadIdentityFile loads a crew identity from a worktree root, checking the
// root first and the state directory second.
func ReadIdentityFile(worktreePath string) (*CrewIdentity, error) {
	candidates := []string{
		filepath.Join(worktreePath, IdentityFileName),
		filepath.Join(worktreePath, StateDirName, IdentityFileName),
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var id CrewIdentity
		if err := json.Unmarshal(data, &id); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return &id, nil
	}
	return nil, fmt.Errorf("no crew identity under %s", worktreePath)
}

// ResolveCrew finds the crew identity for the current invocation, or nil when
// none applies. Strategies in order, first hit wins:
//
//  1. Identity file at the CWD (or its state directory).
//  2. CREW_WORKTREE environment hint pointing at a worktree.
//  3. Worktree registry lookup keyed by the project hash. A filePath hint
//     picks the entry whose path prefixes it; with no hint, a single
//     registered worktree is unambiguous, more than one is not.
//
// The filePath hint matters because teammates often execute in a non-worktree
// parent directory and touch absolute paths inside their worktree; the file
// path is then the only reliable disambiguator.
func ResolveCrew(cwd, filePath string) *CrewIdentity {
	if id, err := ReadIdentityFile(cwd); err == nil {
		return id
	}

	if hint := os.Getenv(WorktreeEnvVar); hint != "" {
		if id, err := ReadIdentityFile(hint); err == nil {
			return id
		}
	}

	reg, err := LoadRegistry(ProjectHash(cwd))
	if err != nil || len(reg.Worktrees) == 0 {
		return nil
	}

	if filePath != "" {
		for _, wt := range reg.Worktrees {
			if pathHasPrefix(filePath, wt.Path) {
				if id, err := ReadIdentityFile(wt.Path); err == nil {
					return id
				}
			}
		}
	}

	if len(reg.Worktrees) == 1 {
		if id, err := ReadIdentityFile(reg.Worktrees[0].Path); err == nil {
			return id
		}
	}

	// Ambiguous: more than one worktree and nothing to pick one by.
	return nil
}

// pathHasPrefix reports whether path sits at or below dir.
func pathHasPrefix(path, dir string) bool {
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
