// Package registry provides the process-scoped, in-memory agent registry.
// It holds registered AgentDescriptors and supports capability-based
// discovery with a stable, deterministic ordering: agents are returned in
// registration order and re-registration keeps an agent's original position
// while replacing its descriptor. The registry is the only shared mutable
// resource between concurrent pipeline runs and is safe for concurrent use.
package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/agentpipe/core"
)

// Registry is a volatile capability-based agent directory. Returned
// descriptors are always clones so callers cannot mutate internal state.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]core.AgentDescriptor
	order  []string
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{agents: make(map[string]core.AgentDescriptor)}
}

// Register inserts or replaces the descriptor under its AgentID. It returns
// core.ErrInvalidDescriptor when the descriptor violates the registration
// invariants. Re-registration is last-write-wins on the descriptor but keeps
// the agent's original registration slot for ordering purposes.
func (r *Registry) Register(d core.AgentDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[d.AgentID]; !exists {
		r.order = append(r.order, d.AgentID)
	}
	r.agents[d.AgentID] = d.Clone()

	return nil
}

// Deregister removes the agent with the given id. It returns core.ErrNotFound
// when no such agent is registered.
func (r *Registry) Deregister(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[agentID]; !exists {
		return fmt.Errorf("%w: %s", core.ErrNotFound, agentID)
	}

	delete(r.agents, agentID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == agentID })

	return nil
}

// Get returns the descriptor registered under agentID or core.ErrNotFound.
func (r *Registry) Get(agentID string) (core.AgentDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.agents[agentID]
	if !ok {
		return core.AgentDescriptor{}, fmt.Errorf("%w: %s", core.ErrNotFound, agentID)
	}

	return d.Clone(), nil
}

// FindByCapability returns every registered agent whose capability set
// contains c, in registration order. The first entry is the deterministic
// pick when a caller must select exactly one agent.
func (r *Registry) FindByCapability(c core.Capability) []core.AgentDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []core.AgentDescriptor
	for _, id := range r.order {
		if d, ok := r.agents[id]; ok && d.HasCapability(c) {
			matches = append(matches, d.Clone())
		}
	}

	return matches
}

// ListAll returns every registered descriptor in registration order, for
// health and diagnostic reporting.
func (r *Registry) ListAll() []core.AgentDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]core.AgentDescriptor, 0, len(r.order))
	for _, id := range r.order {
		if d, ok := r.agents[id]; ok {
			all = append(all, d.Clone())
		}
	}

	return all
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
