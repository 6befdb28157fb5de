package hooks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/crew/internal/store"
)

// fileTools are the tool names whose file_path operations get captured.
var fileTools = map[string]string{
	"Read":  "read",
	"Write": "write",
	"Edit":  "edit",
}

// excludedPathSegments marks VCS metadata and dependency caches whose file
// traffic is noise, not context.
var excludedPathSegments = []string{
	".git", ".capsule", "node_modules", "vendor", ".venv", "__pycache__", ".cache",
}

// discoveryMarkers are the phrases that flag a specialist sub-agent result
// as containing a shareable discovery.
var discoveryMarkers = []string{
	"found", "discovered", "identified", "pattern:", "issue:", "important:", "key finding:",
}

// PostToolUse is the primary capture path: persist file operations and
// sub-agent spawns, then surface related discoveries for Read operations.
// The returned string (possibly empty) is the markdown fragment for stdout.
func PostToolUse(ctx context.Context, st *store.Store, scope Scope, event *Event) string {
	if action, ok := fileTools[event.ToolName]; ok {
		path := event.ToolInput.FilePath
		if path == "" {
			path = event.ToolInput.Path
		}
		if path == "" || isExcludedPath(path) {
			return ""
		}
		captureFileOp(ctx, st, scope, action, path)
		if action == "read" {
			return surfaceDiscoveries(ctx, st, scope, path)
		}
		return ""
	}

	if event.ToolName == "Task" && event.ToolInput.SubagentType != "" {
		captureSubagent(ctx, st, scope, event)
		captureSharedDiscovery(ctx, st, scope, event)
	}

	return ""
}

func isExcludedPath(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		for _, excluded := range excludedPathSegments {
			if seg == excluded {
				return true
			}
		}
	}
	return false
}

func captureFileOp(ctx context.Context, st *store.Store, scope Scope, action, path string) {
	tags := []string{"file", action, scope.SessionID}
	if tm := scope.Teammate(); tm != "" {
		tags = append(tags, tm)
	}
	// One sub-namespace per action: a read and an edit of the same file are
	// distinct operations, not an upsert of one another.
	rec := &store.Record{
		Namespace: scope.FilesNS() + "/" + action,
		Title:     filepath.Base(path),
		Summary:   action + ": " + path,
		Type:      store.TypeMeta,
		Content: map[string]any{
			"filePath":  path,
			"action":    action,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		Tags: tags,
	}
	_ = st.Save(ctx, rec)
}

func captureSubagent(ctx context.Context, st *store.Store, scope Scope, event *Event) {
	tags := []string{"subagent", scope.SessionID}
	if tm := scope.Teammate(); tm != "" {
		tags = append(tags, tm)
	}
	rec := &store.Record{
		Namespace: scope.SubagentsNS(),
		Title:     fmt.Sprintf("%s - %s", event.ToolInput.SubagentType, time.Now().UTC().Format(time.RFC3339)),
		Summary:   event.ToolInput.Prompt,
		Type:      store.TypeSummary,
		Content: map[string]any{
			"agentType": event.ToolInput.SubagentType,
			"prompt":    event.ToolInput.Prompt,
		},
		Tags: tags,
	}
	_ = st.Save(ctx, rec)
}

// surfaceDiscoveries looks for prior discoveries mentioning the file being
// read and returns them as a markdown fragment. Best-effort only: any
// failure surfaces nothing.
func surfaceDiscoveries(ctx context.Context, st *store.Store, scope Scope, path string) string {
	records, err := st.SearchMentions(ctx, scope.DiscoveryNamespaces(),
		[]string{path, filepath.Base(path)}, 3)
	if err != nil || len(records) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Related Discoveries\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "- **%s**: %s\n", rec.Title, rec.Summary)
	}
	return b.String()
}

// captureSharedDiscovery applies the discovery heuristics to a specialist
// sub-agent's result in crew mode. At most one discovery per invocation.
func captureSharedDiscovery(ctx context.Context, st *store.Store, scope Scope, event *Event) {
	if scope.Crew == nil || event.ToolInput.SubagentType == "general-purpose" {
		return
	}

	span := ExtractDiscovery(event.ResultText())
	if span == "" {
		return
	}

	title := span
	if len(title) > 60 {
		title = title[:60]
	}
	rec := &store.Record{
		Namespace: scope.SharedDiscoveriesNS(),
		Title:     title,
		Summary:   span,
		Type:      store.TypeSummary,
		Content: map[string]any{
			"agent":    event.ToolInput.SubagentType,
			"teammate": scope.Teammate(),
		},
		Tags: []string{"discovery", "crew-shared", event.ToolInput.SubagentType, scope.Teammate()},
	}
	_ = st.Save(ctx, rec)
}

// ExtractDiscovery scans text for the first discovery marker and returns the
// span from the marker to the end of its sentence or line, clamped to
// 10-100 characters. Returns "" when nothing qualifies.
func ExtractDiscovery(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)

	start := -1
	for _, marker := range discoveryMarkers {
		if idx := strings.Index(lower, marker); idx >= 0 && (start == -1 || idx < start) {
			start = idx
		}
	}
	if start == -1 {
		return ""
	}

	rest := text[start:]
	end := len(rest)
	for i, c := range rest {
		if c == '\n' || c == '.' {
			end = i
			break
		}
	}
	if end > 100 {
		end = 100
	}
	span := strings.TrimSpace(rest[:end])
	if len(span) < 10 {
		return ""
	}
	return span
}
