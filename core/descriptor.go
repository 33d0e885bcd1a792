package core

import (
	"fmt"
	"maps"
	"slices"
)

// Capability is an opaque tag describing a kind of work an agent can perform
// (e.g. "customer_processing", "energy_consultation"). Matching is exact
// string membership; there is no hierarchy or fuzzy matching.
type Capability string

// AgentDescriptor identifies a registered remote agent. AgentType selects the
// adapter implementation used to invoke it (e.g. "webhook", "polling",
// "simulated"); Config is an opaque key/value map interpreted only by that
// adapter (endpoint URLs, model names, credential references).
//
// Descriptors are immutable after registration; re-registering the same
// AgentID replaces the previous descriptor wholesale.
type AgentDescriptor struct {
	AgentID      string         `json:"agent_id"`
	AgentType    string         `json:"agent_type"`
	Capabilities []Capability   `json:"capabilities"`
	Config       map[string]any `json:"config"`
}

// Validate checks the registration invariants: non-empty AgentID, non-empty
// AgentType and at least one capability. Violations are reported as
// ErrInvalidDescriptor.
func (d AgentDescriptor) Validate() error {
	if d.AgentID == "" {
		return fmt.Errorf("%w: agent_id must not be empty", ErrInvalidDescriptor)
	}

	if d.AgentType == "" {
		return fmt.Errorf("%w: agent_type must not be empty for agent %q", ErrInvalidDescriptor, d.AgentID)
	}

	if len(d.Capabilities) == 0 {
		return fmt.Errorf("%w: agent %q declares no capabilities", ErrInvalidDescriptor, d.AgentID)
	}

	for _, c := range d.Capabilities {
		if c == "" {
			return fmt.Errorf("%w: agent %q declares an empty capability", ErrInvalidDescriptor, d.AgentID)
		}
	}

	return nil
}

// HasCapability reports whether the descriptor's capability set contains c.
func (d AgentDescriptor) HasCapability(c Capability) bool {
	return slices.Contains(d.Capabilities, c)
}

// Clone returns a copy with independent capability slice and config map so
// callers cannot mutate registry-held state.
func (d AgentDescriptor) Clone() AgentDescriptor {
	clone := d
	clone.Capabilities = slices.Clone(d.Capabilities)

	if d.Config != nil {
		clone.Config = make(map[string]any, len(d.Config))
		maps.Copy(clone.Config, d.Config)
	}

	return clone
}
