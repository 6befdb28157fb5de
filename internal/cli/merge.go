package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/gitx"
	"github.com/example/crew/internal/merge"
)

// MergePreviewCmd returns the merge-preview command
func MergePreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge-preview [profile]",
		Short: "Preview merging every teammate branch into main",
		Long: `Dry-run merge analysis for a profile's branches.

For each branch: changed files vs main, conflict detection via
merge-tree, and pairwise file overlaps between teammates. Nothing in the
working tree is touched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pilot, teammates, err := mergeSetup(argOrEmpty(args))
			if err != nil {
				return err
			}

			previews := pilot.Preview(teammates)
			printPreviews(previews)
			printOverlaps(merge.DetectOverlaps(previews))
			return nil
		},
	}
}

// MergeCmd returns the merge command
func MergeCmd() *cobra.Command {
	var testCommand string
	var noBackup bool

	cmd := &cobra.Command{
		Use:   "merge [profile]",
		Short: "Merge teammate branches into main, clean branches first",
		Long: `Execute the crew merge.

Tags the current main as a backup first (disable with --no-backup), then
merges clean branches before conflicted ones. A branch whose merge fails
is aborted and recorded; with --test, a failing test command rolls main
back to its pre-merge commit. Conflict resolution stays with you.

Examples:
  crew merge
  crew merge dev --test "go test ./..."`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pilot, teammates, err := mergeSetup(argOrEmpty(args))
			if err != nil {
				return err
			}

			result, err := pilot.Execute(teammates, merge.ExecuteOptions{
				CreateBackup: !noBackup,
				TestCommand:  testCommand,
			})
			if err != nil {
				return err
			}

			if result.BackupTag != "" {
				fmt.Printf("Backup tag: %s\n", result.BackupTag)
			}
			for _, o := range result.Success {
				fmt.Printf("%s %s (%s)\n", color.GreenString("✓ merged"), o.Branch, o.Teammate)
			}
			for _, o := range result.Failed {
				fmt.Printf("%s %s (%s): %s\n", color.RedString("✗ failed"), o.Branch, o.Teammate, o.Reason)
			}
			for _, o := range result.Skipped {
				fmt.Printf("%s %s (%s): %s\n", color.YellowString("- skipped"), o.Branch, o.Teammate, o.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&testCommand, "test", "", "Command to run after each merge; failure rolls the merge back")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the crew-backup tag")

	return cmd
}

func argOrEmpty(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func mergeSetup(profileArg string) (*merge.Pilot, []config.Teammate, error) {
	cwd, _, err := projectContext()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, nil, err
	}
	_, _, teammates, err := config.ResolveProfile(cfg, profileArg, "")
	if err != nil {
		return nil, nil, err
	}

	mainBranch := cfg.Project.MainBranch
	if mainBranch == "" {
		mainBranch = gitx.New(cwd).DefaultBranch()
	}

	return merge.NewPilot(cwd, mainBranch), teammates, nil
}

func printPreviews(previews []merge.BranchPreview) {
	if len(previews) == 0 {
		fmt.Println("No non-main branches to preview.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TEAMMATE\tBRANCH\tSTATUS\tCHANGED\tCONFLICTS")
	for _, p := range previews {
		detail := ""
		switch p.Status {
		case merge.StatusConflict:
			detail = strings.Join(p.ConflictFiles, ", ")
		case merge.StatusError:
			detail = p.Message
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			p.Teammate, p.Branch, colorPreviewStatus(p.Status), len(p.ChangedFiles), detail)
	}
	w.Flush()
}

func printOverlaps(overlaps []merge.Overlap) {
	if len(overlaps) == 0 {
		return
	}
	fmt.Println("\nOverlapping files between teammates:")
	for _, o := range overlaps {
		fmt.Printf("  %s + %s: %s\n", o.Teammates[0], o.Teammates[1], strings.Join(o.Files, ", "))
	}
}

func colorPreviewStatus(status string) string {
	switch status {
	case merge.StatusClean:
		return color.GreenString(status)
	case merge.StatusConflict:
		return color.YellowString(status)
	default:
		return color.RedString(status)
	}
}
