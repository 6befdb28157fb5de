package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/example/crew/internal/store"
	"github.com/example/crew/internal/teamstate"
)

// SessionEnd writes the session summary record and, in crew mode, marks the
// teammate idle in its profile's team state. Best-effort on every step.
func SessionEnd(ctx context.Context, st *store.Store, scope Scope, branch string) {
	files, _ := st.CountPrefix(ctx, scope.FilesNS())
	agents, _ := st.CountPrefix(ctx, scope.SubagentsNS())

	summary := fmt.Sprintf("Session %s: %d files, %d subagents", scope.SessionID, files, agents)
	if tm := scope.Teammate(); tm != "" {
		summary += " - " + tm
	}
	now := time.Now().UTC().Format(time.RFC3339)
	summary += " (" + now + ")"

	rec := &store.Record{
		Namespace: scope.SessionNS(),
		Title:     scope.SessionID,
		Summary:   summary,
		Type:      store.TypeMeta,
		Content: map[string]any{
			"files":     files,
			"subagents": agents,
			"branch":    branch,
			"teammate":  scope.Teammate(),
			"endedAt":   now,
		},
		Tags: sessionEndTags(scope, branch),
	}
	_ = st.Save(ctx, rec)

	if scope.Crew != nil {
		_ = teamstate.MarkIdle(scope.ProjectHash, scope.Crew.ProfileName, scope.Crew.TeammateName)
	}
}

func sessionEndTags(scope Scope, branch string) []string {
	tags := []string{"session", scope.SessionID}
	if branch != "" {
		tags = append(tags, "branch:"+branch)
	}
	if tm := scope.Teammate(); tm != "" {
		tags = append(tags, tm)
	}
	return tags
}
