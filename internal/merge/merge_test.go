package merge_test

import (
	"testing"

	"github.com/example/crew/internal/merge"
)

func TestParseWriteTreeConflicts(t *testing.T) {
	out := "3fa1f0c2b9d8e7a6\nsrc/core.ts\nsrc/util.ts\nsrc/core.ts\n"
	files := merge.ParseWriteTreeConflicts(out)
	if len(files) != 2 || files[0] != "src/core.ts" || files[1] != "src/util.ts" {
		t.Errorf("unexpected conflict files: %v", files)
	}

	if files := merge.ParseWriteTreeConflicts("3fa1f0c2b9d8e7a6\n"); files != nil {
		t.Errorf("OID-only output means no parsed files, got %v", files)
	}
}

func TestParseAncestorMergeTree(t *testing.T) {
	out := `added in remote
  their  100644 a2b3c4 src/new.ts
changed in both
  base   100644 aaa111 src/core.ts
  our    100644 bbb222 src/core.ts
  their  100644 ccc333 src/core.ts
merged
  result 100644 ddd444 src/other.ts
`
	conflicted, files := merge.ParseAncestorMergeTree(out)
	if !conflicted {
		t.Fatal("expected conflict")
	}
	if len(files) != 1 || files[0] != "src/core.ts" {
		t.Errorf("unexpected conflict files: %v", files)
	}

	conflicted, files = merge.ParseAncestorMergeTree("merged\n  result 100644 abc src/a.ts\n")
	if conflicted || files != nil {
		t.Errorf("clean output misread: %v %v", conflicted, files)
	}

	// Conflict markers without a stanza still indicate conflicts; callers
	// then fall back to the full changed set.
	conflicted, files = merge.ParseAncestorMergeTree("+<<<<<<< .our\n+code\n+=======\n")
	if !conflicted || len(files) != 0 {
		t.Errorf("marker-only output should conflict with no files: %v %v", conflicted, files)
	}
}

func TestDetectOverlaps(t *testing.T) {
	previews := []merge.BranchPreview{
		{Teammate: "alice", Branch: "feat/a", ChangedFiles: []string{"src/core.ts", "src/a.ts"}},
		{Teammate: "bob", Branch: "feat/b", ChangedFiles: []string{"src/core.ts", "src/b.ts"}},
		{Teammate: "carol", Branch: "feat/c", ChangedFiles: []string{"docs/readme.md"}},
	}

	overlaps := merge.DetectOverlaps(previews)
	if len(overlaps) != 1 {
		t.Fatalf("expected 1 overlap, got %d: %v", len(overlaps), overlaps)
	}
	o := overlaps[0]
	if o.Teammates != [2]string{"alice", "bob"} {
		t.Errorf("unexpected pair: %v", o.Teammates)
	}
	if len(o.Files) != 1 || o.Files[0] != "src/core.ts" {
		t.Errorf("unexpected files: %v", o.Files)
	}
}

func TestDetectOverlaps_NoSharedFiles(t *testing.T) {
	previews := []merge.BranchPreview{
		{Teammate: "alice", ChangedFiles: []string{"a.ts"}},
		{Teammate: "bob", ChangedFiles: []string{"b.ts"}},
	}
	if overlaps := merge.DetectOverlaps(previews); len(overlaps) != 0 {
		t.Errorf("expected no overlaps, got %v", overlaps)
	}
}
