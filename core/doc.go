// Package core provides the foundational domain types, interfaces and
// execution state used by AgentPipe. It defines the core abstractions for:
//
//   - AgentDescriptor (identity, capabilities and opaque adapter config)
//   - Adapter (the uniform contract every concrete agent type satisfies)
//   - WorkflowContext (accumulating per-run state passed between steps)
//   - StepResult / WorkflowReport (auditable per-step and per-run outcomes)
//   - The error taxonomy shared between registry, adapters and engine
//
// The package intentionally keeps implementation concerns (registry storage,
// engine orchestration, concrete adapters) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
