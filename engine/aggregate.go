package engine

import (
	"time"

	"github.com/hupe1980/agentpipe/core"
)

// Aggregate folds per-step statuses into the run status. Any failed step
// dominates, then any degraded step, otherwise the run succeeded. An empty
// step list aggregates to success so Aggregate stays total; Run never
// produces one because pipelines validate as non-empty.
func Aggregate(steps []core.StepResult) core.RunStatus {
	status := core.RunSuccess

	for _, s := range steps {
		switch s.Status {
		case core.StepFailed:
			return core.RunFailure
		case core.StepDegraded:
			status = core.RunPartialSuccess
		}
	}

	return status
}

// BuildReport assembles the final workflow report from executed step results.
func BuildReport(runID, pipelineName string, startedAt time.Time, steps []core.StepResult) core.WorkflowReport {
	return core.WorkflowReport{
		RunID:     runID,
		Pipeline:  pipelineName,
		Status:    Aggregate(steps),
		Steps:     steps,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
}
