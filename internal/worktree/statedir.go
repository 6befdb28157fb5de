package worktree

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/crew/internal/identity"
)

// SharedStateDirs are the read-only tooling subdirectories symlinked from
// the source project's state directory into each worktree.
var SharedStateDirs = []string{"agents", "skills", "commands", "hooks"}

// LocalStateDirs hold session-local state and are real directories inside
// the worktree, never symlinks.
var LocalStateDirs = []string{"sessions", "logs"}

// BuildStateDir constructs the hybrid state directory inside a worktree:
// a real directory with selective symlinks to the source project's shared
// tooling, plus local directories for per-session state.
func BuildStateDir(sourceRoot, worktreePath string) error {
	stateDir := filepath.Join(worktreePath, identity.StateDirName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	sourceState := filepath.Join(sourceRoot, identity.StateDirName)
	for _, name := range SharedStateDirs {
		target := filepath.Join(sourceState, name)
		if _, err := os.Stat(target); err != nil {
			continue
		}
		link := filepath.Join(stateDir, name)
		if _, err := os.Lstat(link); err == nil {
			continue
		}
		if err := os.Symlink(target, link); err != nil {
			return fmt.Errorf("failed to link shared %s: %w", name, err)
		}
	}

	for _, name := range LocalStateDirs {
		if err := os.MkdirAll(filepath.Join(stateDir, name), 0755); err != nil {
			return fmt.Errorf("failed to create local %s: %w", name, err)
		}
	}

	return nil
}

// UnlinkStateDir removes every symlink inside a worktree's state directory.
//
// This MUST run before the worktree directory is deleted: removing the tree
// with live symlinks in place risks traversal into the source project's
// shared state, which would destroy it. Regular files and directories are
// left alone.
func UnlinkStateDir(worktreePath string) error {
	stateDir := filepath.Join(worktreePath, identity.StateDirName)
	entries, err := os.ReadDir(stateDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state directory: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(stateDir, entry.Name())
		info, err := os.Lstat(path)
		if err != nil {
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to unlink %s: %w", path, err)
			}
		}
	}
	return nil
}
