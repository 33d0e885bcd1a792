package testutil

import (
	"github.com/hupe1980/agentpipe/core"
)

// DescriptorBuilder provides a fluent helper for constructing agent
// descriptors in tests. Example:
//
//	d := NewDescriptorBuilder("agent-1").Type("webhook").Capability("customer_processing").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type DescriptorBuilder struct {
	id           string
	agentType    string
	capabilities []core.Capability
	config       map[string]any
}

// NewDescriptorBuilder creates a builder with default type "webhook".
func NewDescriptorBuilder(id string) *DescriptorBuilder {
	return &DescriptorBuilder{id: id, agentType: "webhook", config: map[string]any{}}
}

// Type sets the agent type (chainable).
func (b *DescriptorBuilder) Type(t string) *DescriptorBuilder { b.agentType = t; return b }

// Capability appends a capability tag (chainable).
func (b *DescriptorBuilder) Capability(c core.Capability) *DescriptorBuilder {
	b.capabilities = append(b.capabilities, c)
	return b
}

// Config sets a config key/value pair on the resulting descriptor (chainable).
func (b *DescriptorBuilder) Config(key string, val any) *DescriptorBuilder {
	b.config[key] = val
	return b
}

// Build assembles the descriptor. A builder without capabilities gets a
// single "test" capability so the result always passes validation.
func (b *DescriptorBuilder) Build() core.AgentDescriptor {
	caps := b.capabilities
	if len(caps) == 0 {
		caps = []core.Capability{"test"}
	}

	return core.AgentDescriptor{
		AgentID:      b.id,
		AgentType:    b.agentType,
		Capabilities: caps,
		Config:       b.config,
	}
}
