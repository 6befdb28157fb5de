// Package config loads, validates, and resolves crew configuration.
package config

// ConfigFileNames are the accepted config filenames at the project root, in
// lookup order.
var ConfigFileNames = []string{".crew-config.json", ".crew-config.yaml", ".crew-config.yml"}

// Teammate is one declared entry in a team roster.
type Teammate struct {
	Name         string `json:"name"`
	Branch       string `json:"branch"`
	Worktree     *bool  `json:"worktree,omitempty"`
	Role         string `json:"role,omitempty"`
	Model        string `json:"model,omitempty"`
	Mode         string `json:"mode,omitempty"`
	SubagentType string `json:"subagent_type,omitempty"`
	Focus        string `json:"focus,omitempty"`

	// Crew is attached during resolution; it is not part of the declared shape.
	Crew string `json:"-"`
}

// UsesWorktree reports whether this teammate gets a dedicated worktree.
// Defaults to true when unset.
func (t *Teammate) UsesWorktree() bool {
	return t.Worktree == nil || *t.Worktree
}

// CrewGroup is a named sub-group of teammates inside a team.
type CrewGroup struct {
	Name      string     `json:"name"`
	Teammates []Teammate `json:"teammates"`
}

// Team is a roster: teammates listed flat, grouped under crews, or both.
type Team struct {
	Name            string      `json:"name"`
	Teammates       []Teammate  `json:"teammates,omitempty"`
	Crews           []CrewGroup `json:"crews,omitempty"`
	StaleAfterHours float64     `json:"stale_after_hours,omitempty"`
}

// Project holds project-wide settings.
type Project struct {
	MainBranch string `json:"main_branch"`
}

// Config is the declarative crew configuration. Exactly one of Team
// (single-team shape) or Profiles (multi-profile shape) is set.
type Config struct {
	Team            *Team            `json:"team,omitempty"`
	Profiles        map[string]*Team `json:"profiles,omitempty"`
	Default         string           `json:"default,omitempty"`
	Project         Project          `json:"project"`
	StaleAfterHours float64          `json:"stale_after_hours,omitempty"`
}

// DefaultProfileName names the implicit profile of a single-team config.
const DefaultProfileName = "default"

// DefaultStaleAfterHours is the staleness threshold when the config is silent.
const DefaultStaleAfterHours = 4.0

// StaleHours returns the configured staleness threshold in hours.
func (c *Config) StaleHours() float64 {
	if c.StaleAfterHours > 0 {
		return c.StaleAfterHours
	}
	return DefaultStaleAfterHours
}

// StaleHoursFor resolves the staleness threshold for one profile:
// per-profile setting, then top-level, then the default.
func (c *Config) StaleHoursFor(profileName string) float64 {
	var team *Team
	if c.Team != nil && profileName == DefaultProfileName {
		team = c.Team
	} else if c.Profiles != nil {
		team = c.Profiles[profileName]
	}
	if team != nil && team.StaleAfterHours > 0 {
		return team.StaleAfterHours
	}
	return c.StaleHours()
}

// AllTeammates returns the flattened roster of a team: flat teammates under
// crew "default", grouped teammates under their crew's name.
func (t *Team) AllTeammates() []Teammate {
	var out []Teammate
	for _, tm := range t.Teammates {
		tm.Crew = DefaultProfileName
		out = append(out, tm)
	}
	for _, group := range t.Crews {
		crewName := group.Name
		if crewName == "" {
			crewName = DefaultProfileName
		}
		for _, tm := range group.Teammates {
			tm.Crew = crewName
			out = append(out, tm)
		}
	}
	return out
}
