package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/gitx"
)

const configTemplate = `{
  "team": {
    "name": "my-crew",
    "teammates": [
      { "name": "alice", "branch": "feat/alice", "role": "developer" },
      { "name": "bob", "branch": "feat/bob", "role": "reviewer" }
    ]
  },
  "project": {
    "main_branch": %q
  },
  "stale_after_hours": 4
}
`

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a crew config template into the project root",
		Long: `Write a .crew-config.json template into the current directory.

The main branch is auto-detected from origin/HEAD, falling back to main
and then master.

Exits 1 when a crew config already exists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, _, err := projectContext()
			if err != nil {
				return err
			}

			if config.Exists(cwd) {
				return fmt.Errorf("crew config already exists in %s", cwd)
			}

			mainBranch := "main"
			if git := gitx.New(cwd); git.IsRepo() {
				mainBranch = git.DefaultBranch()
			}

			path := filepath.Join(cwd, config.ConfigFileNames[0])
			content := fmt.Sprintf(configTemplate, mainBranch)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Printf("✓ Wrote %s (main branch: %s)\n", path, mainBranch)
			fmt.Println("Edit the teammate list, then run: crew start")
			return nil
		},
	}
}
