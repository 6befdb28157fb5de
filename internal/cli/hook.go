package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/gitx"
	"github.com/example/crew/internal/hooks"
	"github.com/example/crew/internal/identity"
	"github.com/example/crew/internal/store"
	"github.com/example/crew/internal/teamstate"
)

// HookCmd returns the hook command - parent for host agent hook handlers
func HookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook <event>",
		Short: "Handle host agent hook events",
		Long: `Process host agent hook events.

This command is called by the agent runtime's hooks and reads event data
from stdin. Each event has a specific handler subcommand. Handlers never
exit non-zero: a broken hook must not block the host.

Example:
  echo '{"session_id":"abc"}' | crew hook SessionStart`,
	}

	// Handler subcommands are called by the hook system, not users directly.
	for _, sub := range []*cobra.Command{
		hookPreToolUseCmd(),
		hookPostToolUseCmd(),
		hookSessionStartCmd(),
		hookPreCompactCmd(),
		hookSessionEndCmd(),
	} {
		sub.Hidden = true
		cmd.AddCommand(sub)
	}

	return cmd
}

// hookSetup does the work every handler shares: parse stdin, honor the
// disable marker, open the store. ok=false means "exit 0 silently".
func hookSetup() (event *hooks.Event, scope hooks.Scope, st *store.Store, ok bool) {
	event, err := hooks.ReadEvent(os.Stdin)
	if err != nil {
		return nil, hooks.Scope{}, nil, false
	}
	if identity.Disabled(event.CWD) {
		return nil, hooks.Scope{}, nil, false
	}

	filePath := event.ToolInput.FilePath
	if filePath == "" {
		filePath = event.ToolInput.Path
	}
	scope = hooks.NewScope(event.CWD, event.Session(), filePath)

	st, err = openStore()
	if err != nil {
		return nil, hooks.Scope{}, nil, false
	}
	return event, scope, st, true
}

func hookPreToolUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "PreToolUse",
		Short: "Advisory checks before a tool runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := hooks.ReadEvent(os.Stdin)
			if err != nil {
				return nil //nolint:nilerr // intentional fail-open design
			}
			if identity.Disabled(event.CWD) {
				return nil
			}
			if msg := hooks.PreToolUse(event); msg != "" {
				fmt.Fprintln(os.Stdout, msg)
			}
			return nil
		},
	}
}

func hookPostToolUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "PostToolUse",
		Short: "Capture file operations and sub-agent spawns",
		RunE: func(cmd *cobra.Command, args []string) error {
			event, scope, st, ok := hookSetup()
			if !ok {
				return nil
			}
			if out := hooks.PostToolUse(context.Background(), st, scope, event); out != "" {
				fmt.Fprintln(os.Stdout, out)
			}
			return nil
		},
	}
}

func hookSessionStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "SessionStart",
		Short: "Inject context from prior sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			event, scope, st, ok := hookSetup()
			if !ok {
				return nil
			}

			branch := ""
			if git := gitx.New(event.CWD); git.IsRepo() {
				branch, _ = git.CurrentBranch()
			}

			in := hooks.SessionStartInput{
				Scope:  scope,
				Branch: branch,
			}
			if cfg, err := config.Load(event.CWD); err == nil {
				in.Config = cfg
				if states, err := teamstate.LoadAll(scope.ProjectHash); err == nil {
					in.States = states
				}
			}

			out := hooks.BuildSessionStart(context.Background(), st, in)
			hooks.WriteSessionStartOutput(os.Stdout, out)
			return nil
		},
	}
}

func hookPreCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "PreCompact",
		Short: "Write a handoff document before context compaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, scope, st, ok := hookSetup()
			if !ok {
				return nil
			}
			hooks.PreCompact(context.Background(), st, scope)
			return nil
		},
	}
}

func hookSessionEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "SessionEnd",
		Short: "Summarize the session and update teammate state",
		RunE: func(cmd *cobra.Command, args []string) error {
			event, scope, st, ok := hookSetup()
			if !ok {
				return nil
			}
			branch := ""
			if git := gitx.New(event.CWD); git.IsRepo() {
				branch, _ = git.CurrentBranch()
			}
			hooks.SessionEnd(context.Background(), st, scope, branch)
			return nil
		},
	}
}
