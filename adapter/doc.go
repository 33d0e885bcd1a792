// Package adapter contains concrete implementations of the core.Adapter
// contract, one per agent call style:
//
//   - Webhook: synchronous JSON POST to a workflow-automation webhook
//     (n8n-style), unwrapping the array-wrapped response shape
//   - Polling: asynchronous submit-then-poll endpoints (API Gateway in front
//     of a queued model worker); the entire poll loop is hidden inside Invoke
//   - Simulated: a network-free synthetic enterprise-data generator for
//     demos and tests
//
// Model-backed direct-API adapters live in the openai and anthropic
// subpackages. All adapters normalize vendor failures into plain errors; the
// engine converts those into degraded steps.
package adapter
