package testutil

import (
	"github.com/hupe1980/agentpipe/core"
)

// ContextBuilder helps construct workflow contexts with fluent chaining for
// tests. Example:
//
//	wfCtx := NewContextBuilder().Set("customer_id", "c-1").Build()
type ContextBuilder struct {
	values map[string]any
}

// NewContextBuilder creates a new builder with an empty seed.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{values: map[string]any{}}
}

// Set stores a key/value pair in the seed (chainable).
func (b *ContextBuilder) Set(key string, val any) *ContextBuilder {
	b.values[key] = val
	return b
}

// Build assembles the workflow context from the accumulated seed.
func (b *ContextBuilder) Build() *core.WorkflowContext {
	return core.NewWorkflowContext(b.values)
}
