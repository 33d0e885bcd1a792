package core

import "time"

// StepStatus is the terminal state of a single pipeline step.
type StepStatus string

const (
	// StepCompleted means the resolved agent returned a result within its timeout.
	StepCompleted StepStatus = "completed"
	// StepDegraded means the real agent call failed (or no agent was found)
	// and deterministic fallback output was substituted.
	StepDegraded StepStatus = "degraded"
	// StepFailed means the step's fallback generator itself failed; the run
	// stops immediately.
	StepFailed StepStatus = "failed"
)

// RunStatus is the overall outcome of a pipeline run.
type RunStatus string

const (
	// RunSuccess means every step completed against a real agent.
	RunSuccess RunStatus = "success"
	// RunPartialSuccess means at least one step was degraded but none failed.
	RunPartialSuccess RunStatus = "partial_success"
	// RunFailure means a step failed and the run was aborted.
	RunFailure RunStatus = "failure"
)

// StepResult records the auditable outcome of one pipeline step. AgentID is
// empty when no agent could be resolved for the step's capability.
// ErrorDetail is present only for degraded or failed steps.
type StepResult struct {
	Step         string         `json:"step"`
	Capability   Capability     `json:"capability"`
	AgentID      string         `json:"agent_id,omitempty"`
	Status       StepStatus     `json:"status"`
	Output       map[string]any `json:"output,omitempty"`
	Duration     time.Duration  `json:"duration"`
	FallbackUsed bool           `json:"fallback_used"`
	ErrorDetail  string         `json:"error_detail,omitempty"`
}

// WorkflowReport is the immutable result of one pipeline run: the ordered
// per-step results plus the aggregate status and wall-clock duration. It is
// owned by the caller that initiated the run.
type WorkflowReport struct {
	RunID     string        `json:"run_id"`
	Pipeline  string        `json:"pipeline"`
	Status    RunStatus     `json:"status"`
	Steps     []StepResult  `json:"steps"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// FallbackUsed reports whether any step substituted fallback output.
func (r WorkflowReport) FallbackUsed() bool {
	for _, s := range r.Steps {
		if s.FallbackUsed {
			return true
		}
	}
	return false
}

// StepByName returns the result for the named step and whether it exists.
func (r WorkflowReport) StepByName(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}
