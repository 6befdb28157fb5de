// Package store implements the capsule record store: namespaced, typed,
// tagged context records over SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record types. SUMMARY is consumed directly; META is a structured sidecar;
// COLLECTION is browsed for children; SOURCE points at an external artifact;
// ALIAS redirects to another namespace.
const (
	TypeSummary    = "SUMMARY"
	TypeMeta       = "META"
	TypeCollection = "COLLECTION"
	TypeSource     = "SOURCE"
	TypeAlias      = "ALIAS"
)

// Record is the unit of persistence. Identity is (Namespace, Title);
// Save upserts on that key.
type Record struct {
	Namespace string
	Title     string
	Summary   string
	Type      string
	Content   map[string]any
	Tags      []string
	CreatedAt string
	UpdatedAt string
	HitCount  int
}

// Store wraps a SQLite connection with the record operations.
type Store struct {
	db *sql.DB
}

// New creates a store over an open database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// NormalizeNamespace canonicalizes a namespace path: lowercased, trimmed
// segments, no leading/trailing or doubled slashes, depth >= 1. Non-ASCII
// characters are lowercased and kept, not rejected.
func NormalizeNamespace(ns string) (string, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(ns)), "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		segments = append(segments, p)
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("namespace %q has no segments", ns)
	}
	return strings.Join(segments, "/"), nil
}

// Save upserts a record by (namespace, title). created_at and hit_count are
// preserved on update; updated_at is set to the current time at second
// precision, so it never decreases.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	ns, err := NormalizeNamespace(rec.Namespace)
	if err != nil {
		return err
	}
	if rec.Title == "" {
		return fmt.Errorf("record title is required")
	}

	recType := rec.Type
	if recType == "" {
		recType = TypeSummary
	}

	content := rec.Content
	if content == nil {
		content = map[string]any{}
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}

	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (namespace, title, summary, type, content, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, title) DO UPDATE SET
			summary = excluded.summary,
			type = excluded.type,
			content = excluded.content,
			tags = excluded.tags,
			updated_at = excluded.updated_at`,
		ns, rec.Title, rec.Summary, recType, string(contentJSON), string(tagsJSON), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save record %s/%s: %w", ns, rec.Title, err)
	}

	rec.Namespace = ns
	rec.UpdatedAt = now
	return nil
}

const recordColumns = "namespace, title, summary, type, content, tags, created_at, updated_at, hit_count"

// Get retrieves a single record and bumps its hit count.
func (s *Store) Get(ctx context.Context, namespace, title string) (*Record, error) {
	ns, err := NormalizeNamespace(namespace)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE namespace = ? AND title = ?", ns, title)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record %s/%s not found", ns, title)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	// Access frequency feeds retrieval ordering; a failed bump is not fatal.
	_, _ = s.db.ExecContext(ctx,
		"UPDATE records SET hit_count = hit_count + 1 WHERE namespace = ? AND title = ?", ns, title)
	rec.HitCount++

	return rec, nil
}

// List retrieves the direct children of a namespace in recency order.
func (s *Store) List(ctx context.Context, namespace string, limit int) ([]*Record, error) {
	ns, err := NormalizeNamespace(namespace)
	if err != nil {
		return nil, err
	}
	return s.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM records WHERE namespace = ? ORDER BY updated_at DESC, title ASC LIMIT ?",
		ns, queryLimit(limit))
}

// ListPrefix retrieves every record whose namespace equals the prefix or sits
// below it, in recency order.
func (s *Store) ListPrefix(ctx context.Context, prefix string, limit int) ([]*Record, error) {
	ns, err := NormalizeNamespace(prefix)
	if err != nil {
		return nil, err
	}
	return s.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM records WHERE (namespace = ? OR namespace LIKE ?) ORDER BY updated_at DESC LIMIT ?",
		ns, ns+"/%", queryLimit(limit))
}

// QueryOpts selects ordering and filtering for Query.
type QueryOpts struct {
	OrderBy string // "recent" (default) or "hits"
	Tag     string // require this tag when set
	Limit   int
}

// Query retrieves records in a namespace subtree with explicit ordering.
func (s *Store) Query(ctx context.Context, namespace string, opts QueryOpts) ([]*Record, error) {
	ns, err := NormalizeNamespace(namespace)
	if err != nil {
		return nil, err
	}

	order := "updated_at DESC"
	if opts.OrderBy == "hits" {
		order = "hit_count DESC, updated_at DESC"
	}

	query := "SELECT " + recordColumns + " FROM records WHERE (namespace = ? OR namespace LIKE ?)"
	args := []any{ns, ns + "/%"}
	if opts.Tag != "" {
		// Tags are a JSON array of strings; match the quoted element.
		query += " AND tags LIKE ?"
		args = append(args, "%"+`"`+opts.Tag+`"`+"%")
	}
	query += " ORDER BY " + order + " LIMIT ?"
	args = append(args, queryLimit(opts.Limit))

	return s.queryRecords(ctx, query, args...)
}

// Search matches a term against title and summary across the whole store.
// Title matches rank ahead of summary matches; recency breaks ties.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]*Record, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	pattern := "%" + term + "%"
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE title LIKE ? OR summary LIKE ?
		ORDER BY CASE WHEN title LIKE ? THEN 0 ELSE 1 END, updated_at DESC
		LIMIT ?`,
		pattern, pattern, pattern, queryLimit(limit))
}

// SearchMentions finds records under any of the given namespace subtrees whose
// summary or content mentions one of the needles. Used for discovery surfacing.
func (s *Store) SearchMentions(ctx context.Context, namespaces []string, needles []string, limit int) ([]*Record, error) {
	if len(namespaces) == 0 || len(needles) == 0 {
		return nil, nil
	}

	var nsClauses []string
	var args []any
	for _, raw := range namespaces {
		ns, err := NormalizeNamespace(raw)
		if err != nil {
			continue
		}
		nsClauses = append(nsClauses, "(namespace = ? OR namespace LIKE ?)")
		args = append(args, ns, ns+"/%")
	}
	if len(nsClauses) == 0 {
		return nil, nil
	}

	var needleClauses []string
	for _, n := range needles {
		if n == "" {
			continue
		}
		needleClauses = append(needleClauses, "(summary LIKE ? OR content LIKE ?)")
		args = append(args, "%"+n+"%", "%"+n+"%")
	}
	if len(needleClauses) == 0 {
		return nil, nil
	}

	query := "SELECT " + recordColumns + " FROM records WHERE (" +
		strings.Join(nsClauses, " OR ") + ") AND (" +
		strings.Join(needleClauses, " OR ") + ") ORDER BY hit_count DESC, updated_at DESC LIMIT ?"
	args = append(args, queryLimit(limit))

	return s.queryRecords(ctx, query, args...)
}

// Resolve fetches the records in a namespace, following ALIAS redirects and
// expanding COLLECTION children one level per pass, bounded to avoid cycles.
func (s *Store) Resolve(ctx context.Context, namespace string) ([]*Record, error) {
	const maxDepth = 3

	seen := map[string]bool{}
	var resolved []*Record

	var walk func(ns string, depth int) error
	walk = func(ns string, depth int) error {
		if depth > maxDepth || seen[ns] {
			return nil
		}
		seen[ns] = true

		records, err := s.List(ctx, ns, 100)
		if err != nil {
			return err
		}
		for _, rec := range records {
			switch rec.Type {
			case TypeAlias:
				if target, ok := rec.Content["target"].(string); ok && target != "" {
					if err := walk(target, depth+1); err != nil {
						return err
					}
				}
			case TypeCollection:
				if err := walk(rec.Namespace+"/"+rec.Title, depth+1); err != nil {
					return err
				}
				resolved = append(resolved, rec)
			default:
				resolved = append(resolved, rec)
			}
		}
		return nil
	}

	ns, err := NormalizeNamespace(namespace)
	if err != nil {
		return nil, err
	}
	if err := walk(ns, 0); err != nil {
		return nil, err
	}
	return resolved, nil
}

// Prune deletes records last updated before the cutoff. Returns the count.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE updated_at < ?", cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// CountOlderThan counts records a Prune with the same cutoff would delete.
func (s *Store) CountOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE updated_at < ?", cutoff.UTC().Format(time.RFC3339)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count old records: %w", err)
	}
	return count, nil
}

// CountPrefix returns the number of records under a namespace subtree.
func (s *Store) CountPrefix(ctx context.Context, prefix string) (int, error) {
	ns, err := NormalizeNamespace(prefix)
	if err != nil {
		return 0, err
	}
	var count int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE namespace = ? OR namespace LIKE ?", ns, ns+"/%").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func queryLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var contentJSON, tagsJSON string
	err := row.Scan(&rec.Namespace, &rec.Title, &rec.Summary, &rec.Type,
		&contentJSON, &tagsJSON, &rec.CreatedAt, &rec.UpdatedAt, &rec.HitCount)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(contentJSON), &rec.Content); err != nil {
		rec.Content = map[string]any{}
	}
	if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
		rec.Tags = []string{}
	}
	return &rec, nil
}

// HasTag reports whether the record carries the given tag.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ContentString returns a string field from the record content, or "".
func (r *Record) ContentString(key string) string {
	if r.Content == nil {
		return ""
	}
	if v, ok := r.Content[key].(string); ok {
		return v
	}
	return ""
}
