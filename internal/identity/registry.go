package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/crew/internal/db"
)

// RegistryEntry describes one active worktree for a project.
type RegistryEntry struct {
	Name      string `json:"name"`
	Branch    string `json:"branch"`
	Path      string `json:"path"`
	CreatedAt string `json:"created_at"`
}

// Registry is the authoritative per-project list of active worktrees, used
// for crew-identity disambiguation and orphan GC.
type Registry struct {
	Worktrees []RegistryEntry `json:"worktrees"`
}

// CrewDir returns the global crew state area (~/.capsule/crew).
func CrewDir() (string, error) {
	base, err := db.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "crew"), nil
}

// ProjectStateDir returns the per-project crew state directory.
func ProjectStateDir(projectHash string) (string, error) {
	crew, err := CrewDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(crew, projectHash), nil
}

// RegistryPath returns the worktrees.json path for a project.
func RegistryPath(projectHash string) (string, error) {
	dir, err := ProjectStateDir(projectHash)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "worktrees.json"), nil
}

// LoadRegistry reads the worktree registry for a project. A missing file is
// an empty registry, not an error.
func LoadRegistry(projectHash string) (*Registry, error) {
	path, err := RegistryPath(projectHash)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Registry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree registry: %w", err)
	}
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse worktree registry: %w", err)
	}
	return &reg, nil
}

// SaveRegistry writes the worktree registry for a project.
func SaveRegistry(projectHash string, reg *Registry) error {
	path, err := RegistryPath(projectHash)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create crew state directory: %w", err)
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal worktree registry: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write worktree registry: %w", err)
	}
	return nil
}

// Add registers a worktree, replacing any existing entry with the same name.
func (r *Registry) Add(entry RegistryEntry) {
	for i, wt := range r.Worktrees {
		if wt.Name == entry.Name {
			r.Worktrees[i] = entry
			return
		}
	}
	r.Worktrees = append(r.Worktrees, entry)
}

// Remove drops the entry with the given name. Reports whether one was found.
func (r *Registry) Remove(name string) bool {
	for i, wt := range r.Worktrees {
		if wt.Name == name {
			r.Worktrees = append(r.Worktrees[:i], r.Worktrees[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the entry with the given name, or nil.
func (r *Registry) Find(name string) *RegistryEntry {
	for i, wt := range r.Worktrees {
		if wt.Name == name {
			return &r.Worktrees[i]
		}
	}
	return nil
}
