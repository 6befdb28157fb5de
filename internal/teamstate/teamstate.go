// Package teamstate persists the per-profile runtime snapshot of a crew.
package teamstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/crew/internal/config"
	"github.com/example/crew/internal/identity"
)

// Team status values.
const (
	TeamActive  = "active"
	TeamStopped = "stopped"
)

// Teammate status values.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusIdle    = "idle"
	StatusStopped = "stopped"
)

// FileName is the team state filename inside a profile directory.
const FileName = "team-state.json"

// TeammateState is one teammate's runtime entry.
type TeammateState struct {
	Branch       string `json:"branch"`
	WorktreePath string `json:"worktree_path,omitempty"`
	Status       string `json:"status"`
	AgentID      string `json:"agent_id,omitempty"`
	LastActive   string `json:"last_active,omitempty"`
}

// TeamState is the persistent per-profile snapshot. It is the single source
// of truth for resumption: config_hash gates resume vs fresh, agent ids are
// carried forward across sessions.
type TeamState struct {
	TeamName     string                    `json:"team_name"`
	ProfileName  string                    `json:"profile_name"`
	ConfigHash   string                    `json:"config_hash"`
	Status       string                    `json:"status"`
	StartedAt    string                    `json:"started_at"`
	UpdatedAt    string                    `json:"updated_at"`
	Teammates    map[string]*TeammateState `json:"teammates"`
	SpawnPrompts map[string]string         `json:"spawn_prompts,omitempty"`
}

// Path returns the team state path for a profile.
func Path(projectHash, profileName string) (string, error) {
	dir, err := identity.ProjectStateDir(projectHash)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, profileName, FileName), nil
}

// Load reads the team state for a profile. Returns (nil, nil) when no state
// exists yet. A legacy flat team-state.json next to the profile directories
// is migrated into default/ on first read.
func Load(projectHash, profileName string) (*TeamState, error) {
	path, err := Path(projectHash, profileName)
	if err != nil {
		return nil, err
	}

	if profileName == config.DefaultProfileName {
		if err := migrateLegacy(projectHash, path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read team state: %w", err)
	}

	var state TeamState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse team state: %w", err)
	}
	if state.Teammates == nil {
		state.Teammates = map[string]*TeammateState{}
	}
	return &state, nil
}

// migrateLegacy moves a flat <project>/team-state.json into default/.
func migrateLegacy(projectHash, defaultPath string) error {
	if _, err := os.Stat(defaultPath); err == nil {
		return nil
	}
	dir, err := identity.ProjectStateDir(projectHash)
	if err != nil {
		return err
	}
	legacy := filepath.Join(dir, FileName)
	if _, err := os.Stat(legacy); err != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(defaultPath), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := os.Rename(legacy, defaultPath); err != nil {
		return fmt.Errorf("failed to migrate legacy team state: %w", err)
	}
	return nil
}

// Save writes the team state, refreshing updated_at.
func Save(projectHash string, state *TeamState) error {
	path, err := Path(projectHash, state.ProfileName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal team state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write team state: %w", err)
	}
	return nil
}

// LoadAll returns the team state of every profile with saved state.
func LoadAll(projectHash string) (map[string]*TeamState, error) {
	dir, err := identity.ProjectStateDir(projectHash)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string]*TeamState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read crew state directory: %w", err)
	}

	states := map[string]*TeamState{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		state, err := Load(projectHash, entry.Name())
		if err != nil || state == nil {
			continue
		}
		states[entry.Name()] = state
	}

	// A legacy flat file that has not been migrated yet still counts as the
	// default profile.
	if _, ok := states[config.DefaultProfileName]; !ok {
		if state, err := Load(projectHash, config.DefaultProfileName); err == nil && state != nil {
			states[config.DefaultProfileName] = state
		}
	}

	return states, nil
}

// MarkIdle updates a teammate to idle with a fresh last_active timestamp.
// Used by the session-end hook; missing state is not an error.
func MarkIdle(projectHash, profileName, teammateName string) error {
	state, err := Load(projectHash, profileName)
	if err != nil || state == nil {
		return err
	}
	tm, ok := state.Teammates[teammateName]
	if !ok {
		return nil
	}
	tm.Status = StatusIdle
	tm.LastActive = time.Now().UTC().Format(time.RFC3339)
	return Save(projectHash, state)
}

// HoursSinceActive returns hours since the teammate was last active, or -1
// when it never was.
func (t *TeammateState) HoursSinceActive(now time.Time) float64 {
	if t.LastActive == "" {
		return -1
	}
	last, err := time.Parse(time.RFC3339, t.LastActive)
	if err != nil {
		return -1
	}
	return now.Sub(last).Hours()
}

// AnyRecentActivity reports whether any teammate was active within the
// staleness window.
func (s *TeamState) AnyRecentActivity(staleHours float64, now time.Time) bool {
	for _, tm := range s.Teammates {
		if h := tm.HoursSinceActive(now); h >= 0 && h <= staleHours {
			return true
		}
	}
	return false
}

// ShouldStartFresh decides resume vs fresh for a start invocation.
func ShouldStartFresh(prev *TeamState, configHash string, staleHours float64, forceFresh bool) (bool, string) {
	switch {
	case forceFresh:
		return true, "fresh start requested"
	case prev == nil:
		return true, "no previous team state"
	case prev.ConfigHash != configHash:
		return true, "config changed since last start"
	case !prev.AnyRecentActivity(staleHours, time.Now()):
		return true, fmt.Sprintf("no teammate active within %.1fh", staleHours)
	default:
		return false, "resuming previous session"
	}
}
