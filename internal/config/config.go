package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the crew config from the project root. JSON is canonical; YAML
// variants are accepted and funneled through the same JSON shape so
// validation and hashing are representation-independent.
func Load(projectRoot string) (*Config, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(projectRoot, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if strings.HasSuffix(name, ".json") {
			return parseJSON(data)
		}
		return parseYAML(data)
	}
	return nil, fmt.Errorf("no crew config found in %s (run 'crew init')", projectRoot)
}

// Exists reports whether any crew config file is present at the project root.
func Exists(projectRoot string) bool {
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(filepath.Join(projectRoot, name)); err == nil {
			return true
		}
	}
	return false
}

func parseJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func parseYAML(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert config: %w", err)
	}
	return parseJSON(jsonData)
}

// Hash returns the 12-hex-char config hash used for drift detection: sha256
// over the canonical JSON serialization of the full config. Marshaling sorts
// map keys and fixes struct field order, so two configs differing only in
// whitespace or key ordering hash identically.
func Hash(cfg *Config) string {
	canonical, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:12]
}

// Validate checks the config and returns human-readable errors. An empty
// list means the config is valid.
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Team == nil && len(cfg.Profiles) == 0 {
		errs = append(errs, "config must define either 'team' or 'profiles'")
		return errs
	}
	if cfg.Team != nil && len(cfg.Profiles) > 0 {
		errs = append(errs, "config must define exactly one of 'team' or 'profiles', not both")
		return errs
	}

	roles := RolePresets()

	if cfg.Team != nil {
		errs = append(errs, validateTeam(DefaultProfileName, cfg.Team, roles)...)
	}

	if len(cfg.Profiles) > 0 {
		if cfg.Default != "" {
			if _, ok := cfg.Profiles[cfg.Default]; !ok {
				errs = append(errs, fmt.Sprintf("default profile %q does not exist", cfg.Default))
			}
		}
		for _, name := range sortedProfileNames(cfg) {
			errs = append(errs, validateTeam(name, cfg.Profiles[name], roles)...)
		}
	}

	return errs
}

func validateTeam(profile string, team *Team, roles map[string]RolePreset) []string {
	var errs []string

	if team == nil {
		errs = append(errs, fmt.Sprintf("profile %q has no team", profile))
		return errs
	}
	if strings.TrimSpace(team.Name) == "" {
		errs = append(errs, fmt.Sprintf("profile %q: team name is required", profile))
	}

	teammates := team.AllTeammates()
	if len(teammates) == 0 {
		errs = append(errs, fmt.Sprintf("profile %q: team has no teammates", profile))
	}

	seen := map[string]bool{}
	for i, tm := range teammates {
		where := fmt.Sprintf("profile %q teammate #%d", profile, i+1)
		if tm.Name != "" {
			where = fmt.Sprintf("profile %q teammate %q", profile, tm.Name)
		}
		if strings.TrimSpace(tm.Name) == "" {
			errs = append(errs, where+": name is required")
		} else if seen[tm.Name] {
			errs = append(errs, fmt.Sprintf("profile %q: duplicate teammate name %q", profile, tm.Name))
		}
		seen[tm.Name] = true

		if strings.TrimSpace(tm.Branch) == "" {
			errs = append(errs, where+": branch is required")
		}
		if tm.Role != "" {
			if _, ok := roles[tm.Role]; !ok {
				errs = append(errs, fmt.Sprintf("%s: unknown role %q", where, tm.Role))
			}
		}
	}

	return errs
}

// ResolveProfile selects a profile and returns its name, flattened teammates
// (with role presets applied), and team. Selection order: explicit argument,
// config default, first profile name. A single-team config resolves as the
// "default" profile.
func ResolveProfile(cfg *Config, profileArg, crewFilter string) (string, *Team, []Teammate, error) {
	profiles := cfg.Profiles
	if cfg.Team != nil {
		profiles = map[string]*Team{DefaultProfileName: cfg.Team}
	}

	name := profileArg
	if name == "" {
		name = cfg.Default
	}
	if name == "" {
		names := make([]string, 0, len(profiles))
		for n := range profiles {
			names = append(names, n)
		}
		sort.Strings(names)
		if len(names) > 0 {
			name = names[0]
		}
	}

	team, ok := profiles[name]
	if !ok {
		return "", nil, nil, fmt.Errorf("unknown profile %q", name)
	}

	roles := RolePresets()
	var teammates []Teammate
	for _, tm := range team.AllTeammates() {
		if crewFilter != "" && tm.Crew != crewFilter {
			continue
		}
		teammates = append(teammates, ApplyRole(tm, roles))
	}

	return name, team, teammates, nil
}

// ProfileNames returns the addressable profile names of a config.
func ProfileNames(cfg *Config) []string {
	if cfg.Team != nil {
		return []string{DefaultProfileName}
	}
	return sortedProfileNames(cfg)
}

func sortedProfileNames(cfg *Config) []string {
	names := make([]string, 0, len(cfg.Profiles))
	for n := range cfg.Profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
