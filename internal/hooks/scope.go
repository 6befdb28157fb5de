package hooks

import (
	"github.com/example/crew/internal/identity"
)

// Scope locates records for one hook invocation: project tenant, optional
// crew re-scoping, and session.
type Scope struct {
	ProjectHash string
	SessionID   string
	Crew        *identity.CrewIdentity
}

// NewScope resolves the scope for a hook invocation. filePath is the
// tool-input path hint used for crew disambiguation, may be empty.
func NewScope(cwd, sessionID, filePath string) Scope {
	return Scope{
		ProjectHash: identity.ProjectHash(cwd),
		SessionID:   sessionID,
		Crew:        identity.ResolveCrew(cwd, filePath),
	}
}

// Base returns the record namespace root: proj/<hash>, re-scoped to
// proj/<hash>/crew/<teammate> under crew identity.
func (s Scope) Base() string {
	if s.Crew != nil && s.Crew.TeammateName != "" {
		return "proj/" + s.ProjectHash + "/crew/" + s.Crew.TeammateName
	}
	return "proj/" + s.ProjectHash
}

// SessionNS is the session root namespace (holds session-summary records).
func (s Scope) SessionNS() string {
	return s.Base() + "/session"
}

// FilesNS holds per-file operation records for this session.
func (s Scope) FilesNS() string {
	return s.SessionNS() + "/" + s.SessionID + "/files"
}

// SubagentsNS holds sub-agent spawn records for this session.
func (s Scope) SubagentsNS() string {
	return s.SessionNS() + "/" + s.SessionID + "/subagents"
}

// HandoffNS holds pre-compaction handoff documents for this session.
func (s Scope) HandoffNS() string {
	return s.SessionNS() + "/" + s.SessionID + "/handoff"
}

// ProjectDiscoveriesNS holds discoveries outside crew mode.
func (s Scope) ProjectDiscoveriesNS() string {
	return "proj/" + s.ProjectHash + "/discoveries"
}

// SharedDiscoveriesNS holds discoveries shared across a crew.
func (s Scope) SharedDiscoveriesNS() string {
	return "proj/" + s.ProjectHash + "/crew/_shared/discoveries"
}

// DiscoveryNamespaces returns every namespace to consult when surfacing
// discoveries: the per-project one always, the crew-shared one in crew mode.
func (s Scope) DiscoveryNamespaces() []string {
	namespaces := []string{s.ProjectDiscoveriesNS()}
	if s.Crew != nil {
		namespaces = append(namespaces, s.SharedDiscoveriesNS())
	}
	return namespaces
}

// Teammate returns the crew teammate name, or "".
func (s Scope) Teammate() string {
	if s.Crew == nil {
		return ""
	}
	return s.Crew.TeammateName
}
