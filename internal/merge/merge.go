// Package merge implements the merge pilot: dry-run previews of teammate
// branches against main, pairwise overlap detection, and guarded merge
// execution. The contract is report-never-commit for previews; Execute is
// the only path that touches the working tree and it always tags a backup
// first unless told otherwise.
package merge

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/gitx"
)

// Branch preview statuses.
const (
	StatusClean    = "clean"
	StatusConflict = "conflict"
	StatusError    = "error"
)

// BranchPreview is the dry-run result for one teammate branch.
type BranchPreview struct {
	Teammate      string   `json:"teammate"`
	Branch        string   `json:"branch"`
	Status        string   `json:"status"`
	ChangedFiles  []string `json:"changed_files,omitempty"`
	ConflictFiles []string `json:"conflict_files,omitempty"`
	Message       string   `json:"message,omitempty"`
}

// Overlap is a pair of teammates whose branches touch the same files.
type Overlap struct {
	Teammates [2]string `json:"teammates"`
	Files     []string  `json:"files"`
}

// Pilot previews and executes crew merges for one repository.
type Pilot struct {
	git        *gitx.Git
	mainBranch string
}

// NewPilot creates a pilot over the project repository.
func NewPilot(projectRoot, mainBranch string) *Pilot {
	return &Pilot{git: gitx.New(projectRoot), mainBranch: mainBranch}
}

// Preview produces a dry-run row per teammate whose branch differs from main.
// Nothing in the working tree is touched.
func (p *Pilot) Preview(teammates []config.Teammate) []BranchPreview {
	var previews []BranchPreview
	for _, tm := range teammates {
		if tm.Branch == p.mainBranch {
			continue
		}
		previews = append(previews, p.previewBranch(tm))
	}
	return previews
}

func (p *Pilot) previewBranch(tm config.Teammate) BranchPreview {
	preview := BranchPreview{Teammate: tm.Name, Branch: tm.Branch}

	if !p.git.BranchExists(tm.Branch) {
		preview.Status = StatusError
		preview.Message = fmt.Sprintf("branch %s does not exist", tm.Branch)
		return preview
	}

	changed, err := p.git.ChangedFiles(p.mainBranch, tm.Branch)
	if err != nil {
		preview.Status = StatusError
		preview.Message = fmt.Sprintf("failed to diff against %s: %v", p.mainBranch, err)
		return preview
	}
	preview.ChangedFiles = changed

	conflicted, conflictFiles, err := p.detectConflicts(tm.Branch)
	if err != nil {
		preview.Status = StatusError
		preview.Message = err.Error()
		return preview
	}

	if !conflicted {
		preview.Status = StatusClean
		return preview
	}

	preview.Status = StatusConflict
	if len(conflictFiles) == 0 {
		// Parsing was inconclusive; the full changed set is the conservative
		// answer.
		conflictFiles = changed
	}
	preview.ConflictFiles = conflictFiles
	return preview
}

// detectConflicts checks whether merging branch into main would conflict,
// without mutating the working tree. Prefers merge-tree --write-tree (exit
// code 1 means conflicts); falls back to the older ancestor-based form.
func (p *Pilot) detectConflicts(branch string) (bool, []string, error) {
	out, code, err := p.git.OutputWithExit("merge-tree", "--write-tree", "--name-only", p.mainBranch, branch)
	if err == nil {
		switch code {
		case 0:
			return false, nil, nil
		case 1:
			return true, ParseWriteTreeConflicts(out), nil
		}
		// Other exit codes mean the 3-arg variant is unavailable; fall through.
	}

	base, baseErr := p.git.Output("merge-base", p.mainBranch, branch)
	if baseErr != nil {
		return false, nil, fmt.Errorf("conflict detection failed for %s: %v", branch, baseErr)
	}
	out, _, err = p.git.OutputWithExit("merge-tree", strings.TrimSpace(base), p.mainBranch, branch)
	if err != nil {
		return false, nil, fmt.Errorf("conflict detection failed for %s: %v", branch, err)
	}
	conflicted, files := ParseAncestorMergeTree(out)
	return conflicted, files, nil
}

// ParseWriteTreeConflicts extracts conflict file names from merge-tree
// --write-tree --name-only output: the first line is the tree OID, the
// remainder the conflicted paths.
func ParseWriteTreeConflicts(out string) []string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) <= 1 {
		return nil
	}
	var files []string
	seen := map[string]bool{}
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		files = append(files, line)
	}
	return files
}

// ParseAncestorMergeTree scans the older merge-tree form's output for
// conflicts. Conflicts show as "changed in both" stanzas or embedded
// conflict markers; file names come from the stanza entries.
func ParseAncestorMergeTree(out string) (bool, []string) {
	conflicted := false
	var files []string
	seen := map[string]bool{}

	lines := strings.Split(out, "\n")
	inStanza := false
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "changed in both"):
			conflicted = true
			inStanza = true
		case strings.HasPrefix(line, "+<<<<<<<"):
			conflicted = true
		case inStanza && strings.HasPrefix(line, "  "):
			// "  our    100644 <oid> <path>"
			fields := strings.Fields(line)
			if len(fields) >= 4 {
				path := fields[len(fields)-1]
				if !seen[path] {
					seen[path] = true
					files = append(files, path)
				}
			}
		default:
			inStanza = false
		}
	}
	return conflicted, files
}

// DetectOverlaps returns, for every unordered teammate pair, the files both
// branches changed. Surfaces contention before any merge begins.
func DetectOverlaps(previews []BranchPreview) []Overlap {
	var overlaps []Overlap
	for i := 0; i < len(previews); i++ {
		for j := i + 1; j < len(previews); j++ {
			shared := intersect(previews[i].ChangedFiles, previews[j].ChangedFiles)
			if len(shared) == 0 {
				continue
			}
			overlaps = append(overlaps, Overlap{
				Teammates: [2]string{previews[i].Teammate, previews[j].Teammate},
				Files:     shared,
			})
		}
	}
	return overlaps
}

func intersect(a, b []string) []string {
	inA := make(map[string]bool, len(a))
	for _, f := range a {
		inA[f] = true
	}
	var shared []string
	for _, f := range b {
		if inA[f] {
			shared = append(shared, f)
		}
	}
	sort.Strings(shared)
	return shared
}

// BranchOutcome records what happened to one branch during Execute.
type BranchOutcome struct {
	Teammate string `json:"teammate"`
	Branch   string `json:"branch"`
	Reason   string `json:"reason,omitempty"`
}

// ExecuteOptions configures a merge run.
type ExecuteOptions struct {
	CreateBackup bool   // tag main before merging (default true at the CLI)
	TestCommand  string // optional command run after each merge; failure rolls back
}

// ExecuteResult is the structured outcome of a merge run.
type ExecuteResult struct {
	Success   []BranchOutcome `json:"success"`
	Failed    []BranchOutcome `json:"failed"`
	Skipped   []BranchOutcome `json:"skipped"`
	BackupTag string          `json:"backup_tag,omitempty"`
}

// Execute merges teammate branches into main: clean branches first, then
// conflicted ones, error branches skipped. Conflict resolution stays with
// the user; a failed merge is aborted and recorded, a failed test command
// hard-resets main to its pre-merge commit.
func (p *Pilot) Execute(teammates []config.Teammate, opts ExecuteOptions) (*ExecuteResult, error) {
	previews := p.Preview(teammates)
	result := &ExecuteResult{}

	if opts.CreateBackup {
		tag := "crew-backup-" + time.Now().UTC().Format("20060102-150405")
		if err := p.git.Checkout(p.mainBranch); err != nil {
			return nil, fmt.Errorf("failed to checkout %s: %w", p.mainBranch, err)
		}
		if err := p.git.Tag(tag); err != nil {
			return nil, fmt.Errorf("failed to create backup tag: %w", err)
		}
		result.BackupTag = tag
	}

	ordered := orderForMerge(previews)
	for _, preview := range ordered {
		outcome := BranchOutcome{Teammate: preview.Teammate, Branch: preview.Branch}

		if preview.Status == StatusError {
			outcome.Reason = preview.Message
			result.Skipped = append(result.Skipped, outcome)
			continue
		}

		if err := p.mergeOne(preview.Branch, opts.TestCommand); err != nil {
			outcome.Reason = err.Error()
			result.Failed = append(result.Failed, outcome)
			continue
		}
		result.Success = append(result.Success, outcome)
	}

	return result, nil
}

func (p *Pilot) mergeOne(branch, testCommand string) error {
	if err := p.git.Checkout(p.mainBranch); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", p.mainBranch, err)
	}
	before, err := p.git.Head()
	if err != nil {
		return fmt.Errorf("failed to record pre-merge commit: %w", err)
	}

	if err := p.git.Merge(branch); err != nil {
		_ = p.git.MergeAbort()
		return fmt.Errorf("merge failed: %v", err)
	}

	if testCommand != "" {
		if err := runTestCommand(p.git.RepoPath(), testCommand); err != nil {
			if resetErr := p.git.ResetHard(before); resetErr != nil {
				return fmt.Errorf("tests failed (%v) and rollback failed: %v", err, resetErr)
			}
			return fmt.Errorf("tests failed after merge, rolled back: %v", err)
		}
	}

	return nil
}

func runTestCommand(dir, command string) error {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v: %s", err, truncate(string(out), 400))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// orderForMerge puts clean branches ahead of conflicted ones; error branches
// sort last and land in Skipped.
func orderForMerge(previews []BranchPreview) []BranchPreview {
	ordered := make([]BranchPreview, len(previews))
	copy(ordered, previews)
	sort.SliceStable(ordered, func(i, j int) bool {
		return mergeRank(ordered[i].Status) < mergeRank(ordered[j].Status)
	})
	return ordered
}

func mergeRank(status string) int {
	switch status {
	case StatusClean:
		return 0
	case StatusConflict:
		return 1
	default:
		return 2
	}
}
