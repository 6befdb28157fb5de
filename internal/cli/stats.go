package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/crew/internal/store"
)

// StatsCmd returns the stats command
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <view> [arg]",
		Short: "Read-only aggregations over the capsule store",
		Long: `Aggregate views over this project's context records.

Views:
  types       record counts by type
  namespaces  record counts by top-level child namespace
  files       most frequently touched files
  agents      most frequently spawned sub-agents
  sessions    records grouped by session
  branch <b>  records associated with a branch
  search <t>  title/summary keyword search
  resolve <n> records in a namespace, aliases and collections expanded

Store and query failures still exit 0 with best-effort data. A missing or
unknown view, a view missing its argument, or too many arguments exits 1.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, projectHash, err := projectContext()
			if err != nil {
				return err
			}
			st, err := openStore()
			if err != nil {
				fmt.Println("No capsule store yet.")
				return nil //nolint:nilerr // read-only path always exits 0
			}

			ctx := context.Background()
			prefix := "proj/" + projectHash

			switch args[0] {
			case "types":
				counts, err := st.CountByType(ctx, prefix)
				if err != nil {
					return nil //nolint:nilerr
				}
				printCounts("TYPE", counts)
			case "namespaces":
				counts, err := st.CountByChild(ctx, prefix)
				if err != nil {
					return nil //nolint:nilerr
				}
				printCounts("NAMESPACE", counts)
			case "files":
				printTop(st, ctx, prefix, "files", "FILE")
			case "agents":
				printTop(st, ctx, prefix, "subagents", "AGENT")
			case "sessions":
				groups, err := st.Sessions(ctx, prefix)
				if err != nil {
					return nil //nolint:nilerr
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
				fmt.Fprintln(w, "SESSION\tRECORDS\tLAST UPDATE")
				for _, g := range groups {
					fmt.Fprintf(w, "%s\t%d\t%s\n", g.SessionID, g.Records, g.LastUpdate)
				}
				w.Flush()
			case "branch":
				if len(args) < 2 {
					return fmt.Errorf("usage: crew stats branch <name>")
				}
				records, err := st.ListPrefix(ctx, prefix, 200)
				if err != nil {
					return nil //nolint:nilerr
				}
				for _, rec := range store.FilterByBranch(records, args[1]) {
					fmt.Printf("%s/%s: %s\n", rec.Namespace, rec.Title, rec.Summary)
				}
			case "search":
				if len(args) < 2 {
					return fmt.Errorf("usage: crew stats search <term>")
				}
				records, err := st.Search(ctx, args[1], 20)
				if err != nil {
					return nil //nolint:nilerr
				}
				for _, rec := range records {
					fmt.Printf("%s/%s: %s\n", rec.Namespace, rec.Title, rec.Summary)
				}
			case "resolve":
				if len(args) < 2 {
					return fmt.Errorf("usage: crew stats resolve <namespace>")
				}
				records, err := st.Resolve(ctx, args[1])
				if err != nil {
					return nil //nolint:nilerr
				}
				for _, rec := range records {
					fmt.Printf("%s/%s [%s]: %s\n", rec.Namespace, rec.Title, rec.Type, rec.Summary)
				}
			default:
				return fmt.Errorf("unknown view %q", args[0])
			}
			return nil
		},
	}
}

func printCounts(header string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "%s\tCOUNT\n", header)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%d\n", k, counts[k])
	}
	w.Flush()
}

func printTop(st *store.Store, ctx context.Context, prefix, leaf, header string) {
	top, err := st.TopTitles(ctx, prefix, leaf, 10)
	if err != nil {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "%s\tCOUNT\n", header)
	for _, tc := range top {
		fmt.Fprintf(w, "%s\t%d\n", tc.Title, tc.Count)
	}
	w.Flush()
}
