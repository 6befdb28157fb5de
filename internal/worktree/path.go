// Package worktree provisions and removes per-teammate git worktrees with a
// hybrid state layout: shared tooling symlinked from the source project,
// session-local state kept inside the worktree.
package worktree

import (
	"strings"

	"github.com/example/crew/internal/config"
)

// SanitizeBranch maps a branch name onto a path-safe suffix: "/" becomes
// "--", anything outside [A-Za-z0-9._-] becomes "_".
func SanitizeBranch(branch string) string {
	var b strings.Builder
	for _, c := range branch {
		switch {
		case c == '/':
			b.WriteString("--")
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ResolvePath returns the deterministic worktree path for a profile/branch
// pair. The default profile omits the profile segment so solo setups keep
// short sibling directories.
func ResolvePath(projectRoot, profileName, branch string) string {
	suffix := SanitizeBranch(branch)
	if profileName == "" || profileName == config.DefaultProfileName {
		return projectRoot + "-" + suffix
	}
	return projectRoot + "-" + profileName + "-" + suffix
}
