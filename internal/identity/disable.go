package identity

import (
	"os"
	"path/filepath"
)

// DisableMarkerName disables all hook side effects for a directory tree.
const DisableMarkerName = ".capsule-disable"

// Disabled reports whether a disable marker exists anywhere from cwd up to
// the filesystem root. Hooks early-exit cleanly when it does.
func Disabled(cwd string) bool {
	dir := filepath.Clean(cwd)
	for {
		if _, err := os.Stat(filepath.Join(dir, DisableMarkerName)); err == nil {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}
