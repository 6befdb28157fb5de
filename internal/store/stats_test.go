package store_test

import (
	"context"
	"testing"

	"github.com/example/crew/internal/store"
)

func TestStore_CountByType(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	saveTestRecord(t, s, "proj/abc/session/s1/files", "a.go", "read: /p/a.go")
	meta := &store.Record{
		Namespace: "proj/abc/session/s1/files",
		Title:     "b.go",
		Type:      store.TypeMeta,
	}
	if err := s.Save(ctx, meta); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	counts, err := s.CountByType(ctx, "proj/abc")
	if err != nil {
		t.Fatalf("CountByType failed: %v", err)
	}
	if counts[store.TypeSummary] != 1 || counts[store.TypeMeta] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestStore_CountByChild(t *testing.T) {
	s := setupTestStore(t)

	saveTestRecord(t, s, "proj/abc/session/s1/files", "a.go", "read")
	saveTestRecord(t, s, "proj/abc/session/s2/files", "b.go", "read")
	saveTestRecord(t, s, "proj/abc/discoveries", "pattern", "found")
	saveTestRecord(t, s, "proj/abc", "session summary", "2 files")

	counts, err := s.CountByChild(context.Background(), "proj/abc")
	if err != nil {
		t.Fatalf("CountByChild failed: %v", err)
	}
	if counts["session"] != 2 {
		t.Errorf("expected 2 under session, got %d", counts["session"])
	}
	if counts["discoveries"] != 1 {
		t.Errorf("expected 1 under discoveries, got %d", counts["discoveries"])
	}
	if counts["."] != 1 {
		t.Errorf("expected 1 at the prefix itself, got %d", counts["."])
	}
}

func TestStore_TopTitles(t *testing.T) {
	s := setupTestStore(t)

	saveTestRecord(t, s, "proj/abc/session/s1/files", "main.go", "read")
	saveTestRecord(t, s, "proj/abc/session/s2/files", "main.go", "edit")
	saveTestRecord(t, s, "proj/abc/session/s2/files", "util.go", "read")
	saveTestRecord(t, s, "proj/abc/session/s1/subagents", "error-detective - t1", "why NPE?")

	top, err := s.TopTitles(context.Background(), "proj/abc", "files", 5)
	if err != nil {
		t.Fatalf("TopTitles failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 file titles, got %d", len(top))
	}
	if top[0].Title != "main.go" || top[0].Count != 2 {
		t.Errorf("expected main.go with count 2 first, got %+v", top[0])
	}
}

func TestStore_Sessions(t *testing.T) {
	s := setupTestStore(t)

	saveTestRecord(t, s, "proj/abc/session/s1/files", "a.go", "read")
	saveTestRecord(t, s, "proj/abc/session/s1/subagents", "tester", "run tests")
	saveTestRecord(t, s, "proj/abc/session/s2/files", "b.go", "read")

	groups, err := s.Sessions(context.Background(), "proj/abc")
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(groups))
	}

	byID := map[string]store.SessionGroup{}
	for _, g := range groups {
		byID[g.SessionID] = g
	}
	if byID["s1"].Records != 2 {
		t.Errorf("expected 2 records in s1, got %d", byID["s1"].Records)
	}
	if byID["s2"].Records != 1 {
		t.Errorf("expected 1 record in s2, got %d", byID["s2"].Records)
	}
}

func TestFilterByBranch(t *testing.T) {
	records := []*store.Record{
		{Title: "tagged", Tags: []string{"branch:feat/x"}},
		{Title: "content", Content: map[string]any{"branch": "feat/x"}},
		{Title: "other", Content: map[string]any{"branch": "main"}},
	}

	got := store.FilterByBranch(records, "feat/x")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}

	all := store.FilterByBranch(records, "")
	if len(all) != 3 {
		t.Errorf("empty branch should pass everything through, got %d", len(all))
	}
}
