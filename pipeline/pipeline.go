// Package pipeline defines fixed, ordered multi-step workflows: step
// specifications with capability requirements, context projections, merge
// keys, fallback generators and timeouts, plus helpers to build projections,
// load declarative pipeline definitions from YAML and infer a capability from
// a free-text task description.
package pipeline

import (
	"fmt"
	"time"

	"github.com/hupe1980/agentpipe/core"
)

// ProjectionFunc builds a step's request from the running workflow context.
// Projections are engine-side and must not perform I/O.
type ProjectionFunc func(wfCtx *core.WorkflowContext) (core.Request, error)

// FallbackFunc produces a synthetic result for a step when the real agent
// call fails or no agent is found. Fallback generators must be pure and
// network-free; an error here aborts the whole run.
type FallbackFunc func(wfCtx *core.WorkflowContext) (map[string]any, error)

// StepSpec describes one pipeline position.
type StepSpec struct {
	// Name identifies the step in reports and logs.
	Name string
	// RequiredCapability selects the agent invoked for this step.
	RequiredCapability core.Capability
	// InputProjection builds the step's request from the running context.
	// When nil the whole context snapshot is sent as request data.
	InputProjection ProjectionFunc
	// OutputMergeKey is where the step's result is stored in the context.
	// Dotted keys address nested locations.
	OutputMergeKey string
	// Fallback synthesizes the step's output when the agent call fails.
	Fallback FallbackFunc
	// Timeout bounds the agent call. Zero falls back to the engine default.
	Timeout time.Duration
}

// Pipeline is an ordered, fixed sequence of steps defining one workflow.
// Pipelines carry no mutable run state and may be executed repeatedly and
// concurrently.
type Pipeline struct {
	Name  string
	Steps []StepSpec
}

// New constructs a pipeline from the given steps.
func New(name string, steps ...StepSpec) *Pipeline {
	return &Pipeline{Name: name, Steps: steps}
}

// Validate checks the structural invariants before execution: a non-empty
// name, at least one step, and per step a capability, a merge key and a
// fallback generator.
func (p *Pipeline) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("pipeline name must not be empty")
	}

	if len(p.Steps) == 0 {
		return fmt.Errorf("pipeline %q has no steps", p.Name)
	}

	for i, s := range p.Steps {
		if s.Name == "" {
			return fmt.Errorf("pipeline %q: step %d has no name", p.Name, i)
		}
		if s.RequiredCapability == "" {
			return fmt.Errorf("pipeline %q: step %q requires no capability", p.Name, s.Name)
		}
		if s.OutputMergeKey == "" {
			return fmt.Errorf("pipeline %q: step %q has no output merge key", p.Name, s.Name)
		}
		if s.Fallback == nil {
			return fmt.Errorf("pipeline %q: step %q has no fallback generator", p.Name, s.Name)
		}
	}

	return nil
}
