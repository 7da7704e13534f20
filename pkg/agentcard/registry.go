// Package agentcard builds and serves the discovery AgentCard (§4.7) from a
// CapabilityRegistry, with a per-caller TTL cache and optional JWS signing.
package agentcard

import "sync"

// Capability describes one skill a running agent actually exposes. The
// registry is the source of truth; AgentCard.Skills is derived from it
// rather than hand-maintained in parallel.
type Capability struct {
	Name                 string
	Description          string
	Tags                 []string
	Examples             []string
	InputSchema          map[string]any
	OutputSchema         map[string]any
	Streaming            bool
	SecurityRequirements []string
}

// Registry collects the capabilities a server advertises. Safe for
// concurrent use; skills can be registered while a server is live.
type Registry struct {
	mu           sync.RWMutex
	capabilities []Capability
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a capability. Registering under a Name already present
// replaces the earlier entry.
func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.capabilities {
		if existing.Name == c.Name {
			r.capabilities[i] = c
			return
		}
	}
	r.capabilities = append(r.capabilities, c)
}

// Capabilities returns a snapshot of the registered capabilities.
func (r *Registry) Capabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Capability, len(r.capabilities))
	copy(out, r.capabilities)
	return out
}
