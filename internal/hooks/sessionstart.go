package hooks

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/store"
	"github.com/example/crew/internal/teamstate"
)

// DefaultRetentionDays bounds how long records live before session-start
// pruning removes them.
const DefaultRetentionDays = 30

// SessionStartInput carries everything the session-start builder consumes.
// Callers resolve the environment; the builder is pure over store + input.
type SessionStartInput struct {
	Scope         Scope
	Branch        string // current git branch, "" when undeterminable
	RetentionDays int
	Config        *config.Config             // nil when no crew config exists
	States        map[string]*teamstate.TeamState
	Now           time.Time
}

// BuildSessionStart assembles the additionalContext string for a new
// session. An empty string means nothing to inject.
func BuildSessionStart(ctx context.Context, st *store.Store, in SessionStartInput) string {
	if in.RetentionDays <= 0 {
		in.RetentionDays = DefaultRetentionDays
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	var sections []string

	cutoff := in.Now.AddDate(0, 0, -in.RetentionDays)
	if pruned, err := st.Prune(ctx, cutoff); err == nil && pruned > 0 {
		sections = append(sections,
			fmt.Sprintf("_Pruned %d context records older than %d days._", pruned, in.RetentionDays))
	}

	if handoff := latestHandoff(ctx, st, in.Scope); handoff != "" {
		sections = append(sections, "## Session Handoff\n"+handoff)
	} else if section := priorSession(ctx, st, in.Scope, in.Branch); section != "" {
		sections = append(sections, section)
	}

	if section := topDiscoveries(ctx, st, in.Scope); section != "" {
		sections = append(sections, section)
	}
	if section := recentFiles(ctx, st, in.Scope); section != "" {
		sections = append(sections, section)
	}
	if in.Scope.Crew != nil {
		if section := teamActivity(ctx, st, in.Scope); section != "" {
			sections = append(sections, section)
		}
	}
	if in.Config != nil && len(in.States) > 0 {
		if section := crewStatus(in.Config, in.States, in.Now); section != "" {
			sections = append(sections, section)
		}
	}

	return strings.Join(sections, "\n\n")
}

// latestHandoff returns the most recent handoff document, verbatim.
func latestHandoff(ctx context.Context, st *store.Store, scope Scope) string {
	records, err := st.Query(ctx, scope.SessionNS(), store.QueryOpts{Tag: "handoff", Limit: 1})
	if err != nil || len(records) == 0 {
		return ""
	}
	return records[0].Summary
}

// priorSession returns a best-effort prior session section: a session on the
// current branch when one exists, else the most recent session. Failing
// closed to the most recent session covers the undeterminable-branch case.
func priorSession(ctx context.Context, st *store.Store, scope Scope, branch string) string {
	records, err := st.List(ctx, scope.SessionNS(), 10)
	if err != nil || len(records) == 0 {
		return ""
	}

	if branch != "" {
		for _, rec := range records {
			if rec.ContentString("branch") == branch {
				return fmt.Sprintf("## Branch Context (%s)\n%s", branch, rec.Summary)
			}
		}
	}
	return "## Last Session\n" + records[0].Summary
}

func topDiscoveries(ctx context.Context, st *store.Store, scope Scope) string {
	var all []*store.Record
	for _, ns := range scope.DiscoveryNamespaces() {
		records, err := st.Query(ctx, ns, store.QueryOpts{OrderBy: "hits", Limit: 5})
		if err != nil {
			continue
		}
		all = append(all, records...)
	}
	if len(all) == 0 {
		return ""
	}

	sort.Slice(all, func(i, j int) bool { return all[i].HitCount > all[j].HitCount })
	if len(all) > 5 {
		all = all[:5]
	}

	var b strings.Builder
	b.WriteString("## Top Discoveries\n")
	for _, rec := range all {
		fmt.Fprintf(&b, "- **%s**: %s\n", rec.Title, rec.Summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

func recentFiles(ctx context.Context, st *store.Store, scope Scope) string {
	records, err := st.Query(ctx, scope.SessionNS(), store.QueryOpts{Tag: "file", Limit: 3})
	if err != nil || len(records) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Recent Files\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "- %s\n", rec.Summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

// teamActivity surfaces what other teammates touched recently.
func teamActivity(ctx context.Context, st *store.Store, scope Scope) string {
	crewRoot := "proj/" + scope.ProjectHash + "/crew"
	records, err := st.ListPrefix(ctx, crewRoot, 30)
	if err != nil {
		return ""
	}

	self := strings.ToLower(scope.Teammate())
	var lines []string
	for _, rec := range records {
		rest := strings.TrimPrefix(rec.Namespace, crewRoot+"/")
		teammate := strings.SplitN(rest, "/", 2)[0]
		if teammate == self || teammate == "_shared" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", teammate, rec.Summary))
		if len(lines) == 3 {
			break
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "## Team Activity\n" + strings.Join(lines, "\n")
}

// crewStatus renders a compact teammate-status table per profile, marking
// teammates whose last activity exceeds the staleness threshold.
func crewStatus(cfg *config.Config, states map[string]*teamstate.TeamState, now time.Time) string {
	profiles := make([]string, 0, len(states))
	for name := range states {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)

	var b strings.Builder
	b.WriteString("## Crew Status\n")
	for _, profile := range profiles {
		state := states[profile]
		staleHours := cfg.StaleHoursFor(profile)
		fmt.Fprintf(&b, "### %s (%s, %s)\n", profile, state.TeamName, state.Status)

		names := make([]string, 0, len(state.Teammates))
		for name := range state.Teammates {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			tm := state.Teammates[name]
			lastActive := "never"
			stale := ""
			if h := tm.HoursSinceActive(now); h >= 0 {
				lastActive = fmt.Sprintf("%.1fh ago", h)
				if h > staleHours {
					stale = " [stale]"
				}
			} else if tm.Status != teamstate.StatusStopped {
				stale = " [stale]"
			}
			fmt.Fprintf(&b, "- %s: %s, %s, %s (%s)%s\n",
				name, tm.Status, lastActive, tm.Branch, filepath.Base(tm.WorktreePath), stale)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
