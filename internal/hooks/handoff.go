package hooks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/crew/internal/store"
)

// reviewedCap keeps the Reviewed section out of the handoff when the session
// read too many files for the list to carry signal.
const reviewedCap = 5

// agentSummaryLen truncates sub-agent prompts in the handoff document.
const agentSummaryLen = 180

// GenerateHandoff produces the pre-compaction continuity document for a
// session. It never fails: any internal error degrades to a one-line summary.
func GenerateHandoff(ctx context.Context, st *store.Store, scope Scope) string {
	doc, err := buildHandoff(ctx, st, scope)
	if err != nil || doc == "" {
		return fmt.Sprintf("Session %s handoff (no detail available)", scope.SessionID)
	}
	return doc
}

func buildHandoff(ctx context.Context, st *store.Store, scope Scope) (string, error) {
	files, err := st.ListPrefix(ctx, scope.FilesNS(), 200)
	if err != nil {
		return "", err
	}
	agents, err := st.List(ctx, scope.SubagentsNS(), 50)
	if err != nil {
		return "", err
	}
	if len(files) == 0 && len(agents) == 0 {
		return "", nil
	}

	var created, modified, reviewed []*store.Record
	for _, rec := range files {
		switch rec.ContentString("action") {
		case "write":
			created = append(created, rec)
		case "edit":
			modified = append(modified, rec)
		case "read":
			reviewed = append(reviewed, rec)
		}
	}

	var b strings.Builder
	b.WriteString("# Session Handoff\n\n")

	writeFileGroup(&b, "Created", created)
	writeFileGroup(&b, "Modified", modified)
	if len(reviewed) > 0 && len(reviewed) <= reviewedCap {
		writeFileGroup(&b, "Reviewed", reviewed)
	}

	if len(agents) > 0 {
		b.WriteString("## Sub-Agents Used\n")
		for _, rec := range agents {
			agentType := rec.ContentString("agentType")
			if agentType == "" {
				agentType = rec.Title
			}
			summary := rec.Summary
			if len(summary) > agentSummaryLen {
				summary = summary[:agentSummaryLen]
			}
			fmt.Fprintf(&b, "- %s: %s\n", agentType, summary)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Session Summary\n%d files touched, %d sub-agents", len(files), len(agents))
	if dur, ok := sessionDuration(files, agents); ok {
		fmt.Fprintf(&b, ", ~%s elapsed", dur)
	}
	b.WriteString("\n")

	return b.String(), nil
}

func writeFileGroup(b *strings.Builder, heading string, records []*store.Record) {
	if len(records) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n", heading)
	for _, rec := range records {
		path := rec.ContentString("filePath")
		if path == "" {
			path = rec.Title
		}
		fmt.Fprintf(b, "- %s\n", path)
	}
	b.WriteString("\n")
}

// sessionDuration derives a wall-clock duration from the min/max record
// timestamps of the session.
func sessionDuration(groups ...[]*store.Record) (string, bool) {
	var times []time.Time
	for _, records := range groups {
		for _, rec := range records {
			stamp := rec.ContentString("timestamp")
			if stamp == "" {
				stamp = rec.CreatedAt
			}
			if t, err := time.Parse(time.RFC3339, stamp); err == nil {
				times = append(times, t)
			}
		}
	}
	if len(times) < 2 {
		return "", false
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	dur := times[len(times)-1].Sub(times[0]).Round(time.Minute)
	if dur <= 0 {
		return "", false
	}
	return dur.String(), true
}
