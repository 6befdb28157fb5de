// Package gitx wraps the git operations the crew core needs: branch
// resolution, worktree management, merge previews, and merge execution.
package gitx

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Git runs git commands rooted at a repository path.
type Git struct {
	repoPath string
}

// New creates a Git over a repository path.
func New(repoPath string) *Git {
	return &Git{repoPath: repoPath}
}

// RepoPath returns the repository path this wrapper operates on.
func (g *Git) RepoPath() string {
	return g.repoPath
}

// Available reports whether git can run at all.
func Available() bool {
	return exec.Command("git", "--version").Run() == nil
}

// IsRepo reports whether the path is inside a git work tree.
func (g *Git) IsRepo() bool {
	out, err := g.Output("rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// CurrentBranch returns the checked-out branch name.
func (g *Git) CurrentBranch() (string, error) {
	out, err := g.Output("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Head returns the current HEAD commit hash.
func (g *Git) Head() (string, error) {
	out, err := g.Output("rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// BranchExists checks if a local branch exists.
func (g *Git) BranchExists(branch string) bool {
	// rev-parse returns an error when the ref is missing - expected, not an error condition
	return g.Run("rev-parse", "--verify", "refs/heads/"+branch) == nil
}

// RemoteBranchExists checks if a branch exists on the origin remote.
func (g *Git) RemoteBranchExists(branch string) bool {
	return g.Run("rev-parse", "--verify", "refs/remotes/origin/"+branch) == nil
}

// DefaultBranch returns the repo's main branch: the symbolic-ref of
// origin/HEAD when set, else main, else master.
func (g *Git) DefaultBranch() string {
	out, err := g.Output("symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		parts := strings.Split(strings.TrimSpace(out), "/")
		if len(parts) > 0 && parts[len(parts)-1] != "" {
			return parts[len(parts)-1]
		}
	}
	if g.BranchExists("main") || g.RemoteBranchExists("main") {
		return "main"
	}
	if g.BranchExists("master") || g.RemoteBranchExists("master") {
		return "master"
	}
	return "main"
}

// CommitsBehind returns how many commits of base are missing from branch.
func (g *Git) CommitsBehind(branch, base string) (int, error) {
	out, err := g.Output("rev-list", "--count", branch+".."+base)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("failed to parse rev-list count: %w", err)
	}
	return n, nil
}

// ChangedFiles lists files that differ on branch since it diverged from base
// (the 3-dot range).
func (g *Git) ChangedFiles(base, branch string) ([]string, error) {
	out, err := g.Output("diff", "--name-only", base+"..."+branch)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// CommitCountSince counts commits reachable from HEAD within a time window,
// e.g. "24 hours ago".
func (g *Git) CommitCountSince(since string) int {
	out, err := g.Output("rev-list", "--count", "--since="+since, "HEAD")
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(strings.TrimSpace(out))
	return n
}

// Checkout switches to a branch.
func (g *Git) Checkout(branch string) error {
	return g.Run("checkout", branch)
}

// Merge merges a branch into the current one without opening an editor.
func (g *Git) Merge(branch string) error {
	return g.Run("merge", "--no-edit", branch)
}

// MergeAbort aborts an in-progress merge.
func (g *Git) MergeAbort() error {
	return g.Run("merge", "--abort")
}

// ResetHard resets the current branch to a commit.
func (g *Git) ResetHard(commit string) error {
	return g.Run("reset", "--hard", commit)
}

// Tag creates a lightweight tag at the current HEAD.
func (g *Git) Tag(name string) error {
	return g.Run("tag", name)
}

// DeleteBranch force-deletes a local branch.
func (g *Git) DeleteBranch(branch string) error {
	return g.Run("branch", "-D", branch)
}

// Fetch updates remote refs for origin. Failure is common offline and is
// left to the caller to ignore.
func (g *Git) Fetch() error {
	return g.Run("fetch", "origin")
}

// WorktreeAdd creates a worktree at path checking out an existing branch.
func (g *Git) WorktreeAdd(path, branch string) error {
	return g.Run("worktree", "add", path, branch)
}

// WorktreeAddTracking creates a worktree with a new local branch tracking
// origin/<branch>.
func (g *Git) WorktreeAddTracking(path, branch string) error {
	return g.Run("worktree", "add", "--track", "-b", branch, path, "origin/"+branch)
}

// WorktreeAddNewBranch creates a worktree with a new branch cut from base.
func (g *Git) WorktreeAddNewBranch(path, branch, base string) error {
	return g.Run("worktree", "add", "-b", branch, path, base)
}

// WorktreeRemove force-removes a worktree.
func (g *Git) WorktreeRemove(path string) error {
	return g.Run("worktree", "remove", "--force", path)
}

// WorktreePrune drops stale worktree administrative data.
func (g *Git) WorktreePrune() error {
	return g.Run("worktree", "prune")
}

// WorktreeList returns the registered worktree paths.
func (g *Git) WorktreeList() ([]string, error) {
	out, err := g.Output("worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "worktree "); ok {
			paths = append(paths, strings.TrimSpace(rest))
		}
	}
	return paths, nil
}

// IsWorktree reports whether path is a registered worktree of this repo.
// Paths are compared with symlinks resolved; git prints resolved paths.
func (g *Git) IsWorktree(path string) bool {
	paths, err := g.WorktreeList()
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	for _, p := range paths {
		if p == path || p == resolved {
			return true
		}
	}
	return false
}

// Run executes a git command and returns an error including stderr on failure.
func (g *Git) Run(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.repoPath
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Output executes a git command and returns its stdout.
func (g *Git) Output(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.repoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// OutputWithExit executes a git command returning stdout, the exit code, and
// any non-exit error. Needed by merge-tree, whose exit code 1 means
// "conflicts" rather than failure.
func (g *Git) OutputWithExit(args ...string) (string, int, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.repoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return stdout.String(), 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return stdout.String(), exitErr.ExitCode(), nil
	}
	return "", -1, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
}
