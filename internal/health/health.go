// Package health classifies teammate liveness for doctor output and
// recovery recommendations.
package health

import (
	"os"
	"sort"
	"time"

	"github.com/example/crew/internal/gitx"
	"github.com/example/crew/internal/teamstate"
)

// Liveness classes.
const (
	Active       = "active"
	Idle         = "idle"
	Crashed      = "crashed"
	Unresponsive = "unresponsive"
	Unknown      = "unknown"
)

// commitWindow is the lookback used when counting recent worktree commits.
const commitWindow = "24 hours ago"

// Report is one teammate's health row.
type Report struct {
	Teammate      string
	Branch        string
	Status        string
	HoursSince    float64 // -1 when never active
	RecentCommits int
	WorktreePath  string
	Recommendation string
}

// Classify determines a teammate's liveness class.
func Classify(tm *teamstate.TeammateState, staleHours float64, worktreeExists bool, recentCommits int, now time.Time) string {
	if tm == nil {
		return Unknown
	}

	hours := tm.HoursSinceActive(now)
	switch {
	case hours >= 0 && hours <= staleHours:
		return Active
	case hours > staleHours && hours <= 2*staleHours:
		return Idle
	case hours > 2*staleHours && worktreeExists && recentCommits == 0:
		return Crashed
	default:
		return Unresponsive
	}
}

// Check builds a health report for every teammate in a team state.
func Check(state *teamstate.TeamState, staleHours float64, now time.Time) []Report {
	names := make([]string, 0, len(state.Teammates))
	for name := range state.Teammates {
		names = append(names, name)
	}
	sort.Strings(names)

	var reports []Report
	for _, name := range names {
		tm := state.Teammates[name]

		worktreeExists := false
		recentCommits := 0
		if tm.WorktreePath != "" {
			if info, err := os.Stat(tm.WorktreePath); err == nil && info.IsDir() {
				worktreeExists = true
				recentCommits = gitx.New(tm.WorktreePath).CommitCountSince(commitWindow)
			}
		}

		status := Classify(tm, staleHours, worktreeExists, recentCommits, now)
		reports = append(reports, Report{
			Teammate:       name,
			Branch:         tm.Branch,
			Status:         status,
			HoursSince:     tm.HoursSinceActive(now),
			RecentCommits:  recentCommits,
			WorktreePath:   tm.WorktreePath,
			Recommendation: recommend(status, recentCommits),
		})
	}
	return reports
}

func recommend(status string, recentCommits int) string {
	switch status {
	case Active:
		return ""
	case Idle:
		return "nudge or assign new work"
	case Crashed:
		return "spawn a fresh teammate; the worktree has no recent commits"
	case Unresponsive:
		if recentCommits > 0 {
			return "commits exist but no heartbeat; check the agent session"
		}
		return "no activity recorded; spawn fresh or stop"
	default:
		return "no team state for this teammate"
	}
}
