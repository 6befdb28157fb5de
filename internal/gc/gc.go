// Package gc finds and reclaims orphaned crew worktrees across every
// project known to the global crew state area.
package gc

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/gitx"
	"github.com/example/crew/internal/identity"
	"github.com/example/crew/internal/teamstate"
	"github.com/example/crew/internal/worktree"
)

// DefaultStaleHours is the orphan staleness threshold when none is given.
const DefaultStaleHours = 4.0

// Orphan is a worktree registry entry that no longer earns its disk.
type Orphan struct {
	ProjectHash string
	Teammate    string
	Branch      string
	Path        string
	Reason      string
	SizeBytes   int64
}

// FindOrphans scans every project-hash directory under the global crew area.
func FindOrphans(staleHours float64, now time.Time) ([]Orphan, error) {
	crewDir, err := identity.CrewDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(crewDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var orphans []Orphan
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		orphans = append(orphans, FindProjectOrphans(entry.Name(), staleHours, now)...)
	}
	return orphans, nil
}

// FindProjectOrphans evaluates one project's registry against its team
// states. An entry is an orphan when its directory is gone, no team state
// holds its teammate on its branch, its team or teammate is stopped, or its
// teammate has been inactive past the threshold.
func FindProjectOrphans(projectHash string, staleHours float64, now time.Time) []Orphan {
	if staleHours <= 0 {
		staleHours = DefaultStaleHours
	}

	reg, err := identity.LoadRegistry(projectHash)
	if err != nil || len(reg.Worktrees) == 0 {
		return nil
	}
	states, err := teamstate.LoadAll(projectHash)
	if err != nil {
		states = map[string]*teamstate.TeamState{}
	}

	var orphans []Orphan
	for _, entry := range reg.Worktrees {
		reason := orphanReason(entry, states, staleHours, now)
		if reason == "" {
			continue
		}
		orphans = append(orphans, Orphan{
			ProjectHash: projectHash,
			Teammate:    entry.Name,
			Branch:      entry.Branch,
			Path:        entry.Path,
			Reason:      reason,
			SizeBytes:   dirSize(entry.Path),
		})
	}
	return orphans
}

func orphanReason(entry identity.RegistryEntry, states map[string]*teamstate.TeamState, staleHours float64, now time.Time) string {
	if _, err := os.Stat(entry.Path); os.IsNotExist(err) {
		return "directory missing"
	}

	for _, state := range states {
		tm, ok := state.Teammates[entry.Name]
		if !ok || tm.Branch != entry.Branch {
			continue
		}
		if state.Status == teamstate.TeamStopped {
			return "team stopped"
		}
		if tm.Status == teamstate.StatusStopped {
			return "teammate stopped"
		}
		if h := tm.HoursSinceActive(now); h > staleHours {
			return "stale"
		}
		return ""
	}

	// No owning team state at all; nothing vouches for this worktree.
	return "no team state"
}

// dirSize sums file sizes under a directory, best-effort.
func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, err := d.Info(); err == nil && !d.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// Options configures a reclaim run.
type Options struct {
	DeleteBranches bool
	DryRun         bool
}

// Result records the reclaim outcome for one orphan.
type Result struct {
	Orphan  Orphan
	Removed bool
	Err     error
}

// Reclaim removes orphaned worktrees and their registry entries. Symlinked
// state is unlinked before anything is deleted.
func Reclaim(orphans []Orphan, opts Options) []Result {
	results := make([]Result, 0, len(orphans))
	for _, orphan := range orphans {
		results = append(results, reclaimOne(orphan, opts))
	}
	return results
}

func reclaimOne(orphan Orphan, opts Options) Result {
	result := Result{Orphan: orphan}
	if opts.DryRun {
		return result
	}

	projectRoot := InferProjectRoot(orphan.Path, orphan.Branch)

	if _, err := os.Stat(orphan.Path); err == nil {
		if err := worktree.UnlinkStateDir(orphan.Path); err != nil {
			result.Err = err
			return result
		}
		git := gitx.New(projectRoot)
		if projectRoot == "" || git.WorktreeRemove(orphan.Path) != nil {
			if err := os.RemoveAll(orphan.Path); err != nil {
				result.Err = err
				return result
			}
			if projectRoot != "" {
				_ = git.WorktreePrune()
			}
		}
	}

	if opts.DeleteBranches && projectRoot != "" {
		_ = gitx.New(projectRoot).DeleteBranch(orphan.Branch)
	}

	if reg, err := identity.LoadRegistry(orphan.ProjectHash); err == nil {
		if reg.Remove(orphan.Teammate) {
			_ = identity.SaveRegistry(orphan.ProjectHash, reg)
		}
	}

	result.Removed = true
	return result
}

// InferProjectRoot recovers the source project path from a worktree path by
// stripping the deterministic suffix; failing that, it walks upward looking
// for a primary (non-worktree) git directory. Returns "" when neither works.
func InferProjectRoot(wtPath, branch string) string {
	suffix := "-" + worktree.SanitizeBranch(branch)
	if strings.HasSuffix(wtPath, suffix) {
		candidate := strings.TrimSuffix(wtPath, suffix)
		// A named profile inserts one more segment: <root>-<profile>.
		if isPrimaryCheckout(candidate) {
			return candidate
		}
		if idx := strings.LastIndex(candidate, "-"); idx > 0 {
			if root := candidate[:idx]; isPrimaryCheckout(root) {
				return root
			}
		}
	}

	dir := filepath.Dir(wtPath)
	for i := 0; i < 10; i++ {
		if isPrimaryCheckout(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// isPrimaryCheckout reports whether path holds a primary clone: its .git is
// a directory, not the file a linked worktree carries.
func isPrimaryCheckout(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// StaleHoursFromConfig resolves the GC threshold from an optional crew
// config, falling back to the default.
func StaleHoursFromConfig(cfg *config.Config) float64 {
	if cfg == nil {
		return DefaultStaleHours
	}
	return cfg.StaleHours()
}
