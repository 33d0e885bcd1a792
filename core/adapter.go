package core

import "context"

// Request is the normalized payload the engine hands to an adapter. Task is a
// short instruction describing what the agent should do; Data carries the
// structured input projected from the workflow context.
type Request struct {
	Task string         `json:"task"`
	Data map[string]any `json:"data"`
}

// Adapter is the uniform contract every concrete agent type satisfies. The
// engine is written against this interface only and holds no branch on agent
// type; vendor payload shapes, authentication schemes and polling cadence are
// fully internal to each implementation.
//
// Implementations must:
//   - Respect ctx cancellation and deadlines in Invoke
//   - Encapsulate any submit-then-poll loop entirely inside Invoke, returning
//     only on terminal completion, terminal failure or deadline
//   - Never let Health block beyond a short bound or panic past its boundary;
//     internal failures map to false
type Adapter interface {
	// Invoke performs one agent call using the descriptor's opaque config and
	// returns the structured result or an error. Errors of any kind (network,
	// non-success status, malformed response, timeout) are normalized by the
	// caller into a degraded step.
	Invoke(ctx context.Context, config map[string]any, req Request) (map[string]any, error)

	// Health is a cheap reachability probe for the agent behind config.
	Health(ctx context.Context, config map[string]any) bool
}
