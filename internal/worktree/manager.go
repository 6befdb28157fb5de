package worktree

import (
	"fmt"
	"os"
	"time"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/gitx"
	"github.com/example/crew/internal/identity"
)

// behindWarnThreshold triggers a warning when an existing branch has fallen
// this many commits behind the main branch.
const behindWarnThreshold = 100

// Manager provisions and tears down worktrees for one project.
type Manager struct {
	git         *gitx.Git
	projectRoot string
	projectHash string
}

// NewManager creates a manager rooted at the source project.
func NewManager(projectRoot, projectHash string) *Manager {
	return &Manager{
		git:         gitx.New(projectRoot),
		projectRoot: projectRoot,
		projectHash: projectHash,
	}
}

// ProvisionResult reports what a provisioning run did.
type ProvisionResult struct {
	Path     string
	Existed  bool
	Warnings []string
}

// Provision creates (or verifies) the worktree for a teammate and registers
// it. Idempotent: an existing registered worktree is refreshed, an existing
// directory that is not a worktree is an error.
func (m *Manager) Provision(profileName, teamName, mainBranch string, tm config.Teammate) (*ProvisionResult, error) {
	wtPath := ResolvePath(m.projectRoot, profileName, tm.Branch)
	result := &ProvisionResult{Path: wtPath}

	if _, err := os.Stat(wtPath); err == nil {
		if !m.git.IsWorktree(wtPath) {
			return nil, fmt.Errorf("%s exists but is not a registered worktree; move it aside or choose another branch", wtPath)
		}
		result.Existed = true
	} else {
		warnings, err := m.addWorktree(wtPath, tm.Branch, mainBranch)
		if err != nil {
			return nil, err
		}
		result.Warnings = warnings
	}

	if err := BuildStateDir(m.projectRoot, wtPath); err != nil {
		return nil, err
	}

	id := &identity.CrewIdentity{
		TeammateName: tm.Name,
		ProjectRoot:  m.projectRoot,
		Branch:       tm.Branch,
		TeamName:     teamName,
		ProfileName:  profileName,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := identity.WriteIdentityFile(wtPath, id); err != nil {
		return nil, err
	}

	reg, err := identity.LoadRegistry(m.projectHash)
	if err != nil {
		return nil, err
	}
	reg.Add(identity.RegistryEntry{
		Name:      tm.Name,
		Branch:    tm.Branch,
		Path:      wtPath,
		CreatedAt: id.CreatedAt,
	})
	if err := identity.SaveRegistry(m.projectHash, reg); err != nil {
		return nil, err
	}

	return result, nil
}

// addWorktree creates the worktree, resolving the branch in order: existing
// local branch, tracking branch for an origin branch, new branch from main.
func (m *Manager) addWorktree(wtPath, branch, mainBranch string) ([]string, error) {
	var warnings []string

	switch {
	case m.git.BranchExists(branch):
		if behind, err := m.git.CommitsBehind(branch, mainBranch); err == nil && behind > behindWarnThreshold {
			warnings = append(warnings,
				fmt.Sprintf("branch %s is %d commits behind %s; consider rebasing", branch, behind, mainBranch))
		}
		if err := m.git.WorktreeAdd(wtPath, branch); err != nil {
			return nil, fmt.Errorf("failed to add worktree for %s: %w", branch, err)
		}
	case m.git.RemoteBranchExists(branch):
		if err := m.git.WorktreeAddTracking(wtPath, branch); err != nil {
			return nil, fmt.Errorf("failed to add tracking worktree for %s: %w", branch, err)
		}
	default:
		if err := m.git.WorktreeAddNewBranch(wtPath, branch, mainBranch); err != nil {
			return nil, fmt.Errorf("failed to create branch %s from %s: %w", branch, mainBranch, err)
		}
	}

	return warnings, nil
}

// Remove tears down a worktree and drops it from the registry.
//
// Symlinks in the state directory are removed before anything else so the
// teardown can never traverse into the source project's shared state.
func (m *Manager) Remove(name, wtPath string) error {
	if err := UnlinkStateDir(wtPath); err != nil {
		return err
	}

	if err := m.git.WorktreeRemove(wtPath); err != nil {
		// Worktree metadata may already be broken; remove the directory and
		// let git clean up its bookkeeping.
		if err := os.RemoveAll(wtPath); err != nil {
			return fmt.Errorf("failed to remove worktree directory: %w", err)
		}
		_ = m.git.WorktreePrune()
	}

	reg, err := identity.LoadRegistry(m.projectHash)
	if err != nil {
		return err
	}
	if reg.Remove(name) {
		if err := identity.SaveRegistry(m.projectHash, reg); err != nil {
			return err
		}
	}
	return nil
}
