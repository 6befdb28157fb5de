package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/example/crew/internal/db"
)

// RolePreset supplies defaults for a teammate role. Explicit teammate fields
// always override; focus text is prefixed, not replaced.
type RolePreset struct {
	Model       string `toml:"model"`
	Mode        string `toml:"mode"`
	Subagent    string `toml:"subagent"`
	FocusPrefix string `toml:"focus_prefix"`
}

// builtinRoles is the closed built-in role dictionary.
var builtinRoles = map[string]RolePreset{
	"developer": {
		Model:       "sonnet",
		Mode:        "bypassPermissions",
		Subagent:    "general-purpose",
		FocusPrefix: "Implement features, write code, fix bugs in your worktree.",
	},
	"reviewer": {
		Model:       "sonnet",
		Mode:        "default",
		Subagent:    "general-purpose",
		FocusPrefix: "Review code for bugs, security, quality. Read-only — do not modify files.",
	},
	"tester": {
		Model:       "haiku",
		Mode:        "bypassPermissions",
		Subagent:    "general-purpose",
		FocusPrefix: "Write and run tests. Ensure coverage for new features.",
	},
	"architect": {
		Model:       "opus",
		Mode:        "default",
		Subagent:    "general-purpose",
		FocusPrefix: "Design architecture, review patterns, suggest improvements. Read-only.",
	},
}

// RolesFileName is the optional user role-preset override file under the
// global capsule directory.
const RolesFileName = "roles.toml"

// RolePresets returns the known roles: built-ins merged with any user
// overrides from ~/.capsule/roles.toml. A user entry wins over a built-in of
// the same name; a broken overrides file is ignored.
func RolePresets() map[string]RolePreset {
	roles := make(map[string]RolePreset, len(builtinRoles))
	for name, preset := range builtinRoles {
		roles[name] = preset
	}

	dir, err := db.Dir()
	if err != nil {
		return roles
	}
	data, err := os.ReadFile(filepath.Join(dir, RolesFileName))
	if err != nil {
		return roles
	}

	var overrides map[string]RolePreset
	if _, err := toml.Decode(string(data), &overrides); err != nil {
		return roles
	}
	for name, preset := range overrides {
		roles[name] = preset
	}
	return roles
}

// ApplyRole fills teammate defaults from its role preset. Explicit fields
// override; the resolved focus is the preset prefix followed by the
// teammate's own focus text.
func ApplyRole(tm Teammate, roles map[string]RolePreset) Teammate {
	preset, ok := roles[tm.Role]
	if !ok {
		return tm
	}

	if tm.Model == "" {
		tm.Model = preset.Model
	}
	if tm.Mode == "" {
		tm.Mode = preset.Mode
	}
	if tm.SubagentType == "" {
		tm.SubagentType = preset.Subagent
	}

	focus := strings.TrimSpace(tm.Focus)
	if preset.FocusPrefix != "" {
		if focus != "" {
			focus = preset.FocusPrefix + " " + focus
		} else {
			focus = preset.FocusPrefix
		}
	}
	tm.Focus = focus

	return tm
}
