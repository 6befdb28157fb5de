package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// TitleCount pairs a title with its occurrence count.
type TitleCount struct {
	Title string
	Count int
}

// SessionGroup summarizes one session/<sid>/... namespace subtree.
type SessionGroup struct {
	SessionID  string
	Records    int
	LastUpdate string
}

// CountByType returns record counts per record type under a prefix.
func (s *Store) CountByType(ctx context.Context, prefix string) (map[string]int, error) {
	ns, err := NormalizeNamespace(prefix)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, COUNT(*) FROM records
		WHERE namespace = ? OR namespace LIKE ?
		GROUP BY type`, ns, ns+"/%")
	if err != nil {
		return nil, fmt.Errorf("failed to count by type: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// CountByChild returns record counts grouped by the namespace segment directly
// below the prefix. Records sitting exactly at the prefix count under ".".
func (s *Store) CountByChild(ctx context.Context, prefix string) (map[string]int, error) {
	ns, err := NormalizeNamespace(prefix)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT namespace, COUNT(*) FROM records
		WHERE namespace = ? OR namespace LIKE ?
		GROUP BY namespace`, ns, ns+"/%")
	if err != nil {
		return nil, fmt.Errorf("failed to count by namespace: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var recNS string
		var n int
		if err := rows.Scan(&recNS, &n); err != nil {
			return nil, err
		}
		child := "."
		if recNS != ns {
			rest := strings.TrimPrefix(recNS, ns+"/")
			child = strings.SplitN(rest, "/", 2)[0]
		}
		counts[child] += n
	}
	return counts, rows.Err()
}

// TopTitles returns the K most frequent record titles under namespaces whose
// last segment matches the given leaf (e.g. "files", "subagents"), or that sit
// below such a namespace (e.g. ".../files/read").
func (s *Store) TopTitles(ctx context.Context, prefix, leaf string, k int) ([]TitleCount, error) {
	ns, err := NormalizeNamespace(prefix)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, COUNT(*) AS n FROM records
		WHERE (namespace = ? OR namespace LIKE ?) AND (namespace LIKE ? OR namespace LIKE ?)
		GROUP BY title ORDER BY n DESC, title ASC LIMIT ?`,
		ns, ns+"/%", "%/"+leaf, "%/"+leaf+"/%", queryLimit(k))
	if err != nil {
		return nil, fmt.Errorf("failed to rank titles: %w", err)
	}
	defer rows.Close()

	var top []TitleCount
	for rows.Next() {
		var tc TitleCount
		if err := rows.Scan(&tc.Title, &tc.Count); err != nil {
			return nil, err
		}
		top = append(top, tc)
	}
	return top, rows.Err()
}

// Sessions groups records under <prefix>/session/<sid>/... by session id.
func (s *Store) Sessions(ctx context.Context, prefix string) ([]SessionGroup, error) {
	ns, err := NormalizeNamespace(prefix)
	if err != nil {
		return nil, err
	}
	sessionRoot := ns + "/session/"
	rows, err := s.db.QueryContext(ctx, `
		SELECT namespace, COUNT(*), MAX(updated_at) FROM records
		WHERE namespace LIKE ?
		GROUP BY namespace`, sessionRoot+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to group sessions: %w", err)
	}
	defer rows.Close()

	groups := map[string]*SessionGroup{}
	for rows.Next() {
		var recNS, last string
		var n int
		if err := rows.Scan(&recNS, &n, &last); err != nil {
			return nil, err
		}
		sid := strings.SplitN(strings.TrimPrefix(recNS, sessionRoot), "/", 2)[0]
		g, ok := groups[sid]
		if !ok {
			g = &SessionGroup{SessionID: sid}
			groups[sid] = g
		}
		g.Records += n
		if last > g.LastUpdate {
			g.LastUpdate = last
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]SessionGroup, 0, len(groups))
	for _, g := range groups {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LastUpdate > result[j].LastUpdate })
	return result, nil
}

// FilterByBranch keeps records associated with a branch, either via a
// branch:<name> tag or via a content.branch field.
func FilterByBranch(records []*Record, branch string) []*Record {
	if branch == "" {
		return records
	}
	var out []*Record
	for _, rec := range records {
		if rec.HasTag("branch:"+branch) || rec.ContentString("branch") == branch {
			out = append(out, rec)
		}
	}
	return out
}
