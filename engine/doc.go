// Package engine executes pipelines against registered agents.
//
// The Engine binds a capability registry to a set of protocol adapters and
// runs pipeline steps strictly in order. Each step resolves an agent by
// capability, projects the workflow context into a request, invokes the
// agent's adapter under a hard timeout, and merges the output back into the
// context. Invocation failures degrade the step to its fallback output so
// later steps keep running; only a failing fallback aborts the run.
package engine
