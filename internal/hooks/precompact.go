package hooks

import (
	"context"

	"github.com/example/crew/internal/store"
)

// PreCompact generates the handoff document while full context is still
// available and persists it for the next session. Errors are swallowed;
// compaction must never block on us.
func PreCompact(ctx context.Context, st *store.Store, scope Scope) {
	doc := GenerateHandoff(ctx, st, scope)

	tags := []string{"handoff", "pre-compact", scope.SessionID}
	if tm := scope.Teammate(); tm != "" {
		tags = append(tags, tm)
	}

	rec := &store.Record{
		Namespace: scope.HandoffNS(),
		Title:     "handoff",
		Summary:   doc,
		Type:      store.TypeSummary,
		Content: map[string]any{
			"sessionId": scope.SessionID,
		},
		Tags: tags,
	}
	_ = st.Save(ctx, rec)
}
