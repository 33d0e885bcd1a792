package core

import (
	"errors"
	"fmt"
)

// ErrInvalidDescriptor is returned by registration when a descriptor violates
// the registry invariants (empty agent_id or empty capability set).
var ErrInvalidDescriptor = errors.New("invalid agent descriptor")

// ErrNotFound is returned by lookups for an unknown agent id.
var ErrNotFound = errors.New("agent not found")

// AdapterError wraps any failure surfaced by a concrete agent call: network
// error, non-success status, malformed response or timeout. The engine
// converts it into a degraded step; it is never propagated as a failure of
// the whole run.
type AdapterError struct {
	AgentID   string
	AgentType string
	Err       error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s (agent %s): %v", e.AgentType, e.AgentID, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *AdapterError) Unwrap() error { return e.Err }

// NewAdapterError wraps err with the identity of the failing agent.
func NewAdapterError(agentID, agentType string, err error) *AdapterError {
	return &AdapterError{AgentID: agentID, AgentType: agentType, Err: err}
}

// FallbackError reports that a step's fallback generator itself failed. This
// is the one unrecoverable condition: fallback generators are pure and
// network-free, so a failure here is a programming-contract violation and
// aborts the whole run.
type FallbackError struct {
	Step string
	Err  error
}

// Error implements the error interface.
func (e *FallbackError) Error() string {
	return fmt.Sprintf("fallback generator for step %s failed: %v", e.Step, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *FallbackError) Unwrap() error { return e.Err }
