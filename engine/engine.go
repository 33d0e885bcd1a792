package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/logging"
	"github.com/hupe1980/agentpipe/pipeline"
	"github.com/hupe1980/agentpipe/registry"
)

// DefaultStepTimeout bounds a single adapter invocation when the step spec
// does not set its own timeout.
const DefaultStepTimeout = 60 * time.Second

// Options configure engine construction.
type Options struct {
	Logger         logging.Logger
	DefaultTimeout time.Duration
}

// Engine executes pipelines against a capability registry. Adapters are
// registered per agent type and shared across runs; the registry is the only
// state mutated concurrently, every run keeps its own workflow context.
type Engine struct {
	registry       *registry.Registry
	mu             sync.RWMutex
	adapters       map[string]core.Adapter
	logger         logging.Logger
	defaultTimeout time.Duration
}

// New creates an engine bound to the given registry.
func New(reg *registry.Registry, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:         logging.NoOpLogger{},
		DefaultTimeout: DefaultStepTimeout,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultStepTimeout
	}

	return &Engine{
		registry:       reg,
		adapters:       make(map[string]core.Adapter),
		logger:         opts.Logger,
		defaultTimeout: opts.DefaultTimeout,
	}
}

// RegisterAdapter binds an adapter to an agent type. Registering the same
// type again replaces the previous adapter.
func (e *Engine) RegisterAdapter(agentType string, a core.Adapter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adapters[agentType] = a
}

// Adapter returns the adapter registered for an agent type.
func (e *Engine) Adapter(agentType string) (core.Adapter, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.adapters[agentType]
	return a, ok
}

// Run executes every step of the pipeline in declaration order and returns
// the aggregated report. The returned error is non-nil only for contract
// violations detected before execution starts; runtime step failures are
// reported through the report status instead.
func (e *Engine) Run(ctx context.Context, p *pipeline.Pipeline, input map[string]any) (core.WorkflowReport, error) {
	if p == nil {
		return core.WorkflowReport{}, fmt.Errorf("pipeline must not be nil")
	}
	if err := p.Validate(); err != nil {
		return core.WorkflowReport{}, fmt.Errorf("invalid pipeline %q: %w", p.Name, err)
	}

	runID := uuid.NewString()
	wfCtx := core.NewWorkflowContext(input)
	startedAt := time.Now()

	e.logger.Info("pipeline run started pipeline=%s run_id=%s steps=%d", p.Name, runID, len(p.Steps))

	steps := make([]core.StepResult, 0, len(p.Steps))

	for _, step := range p.Steps {
		result := e.executeStep(ctx, step, wfCtx)
		steps = append(steps, result)

		if result.Status == core.StepFailed {
			e.logger.Error("pipeline run aborted at step %s: %s", step.Name, result.ErrorDetail)
			break
		}
	}

	report := BuildReport(runID, p.Name, startedAt, steps)

	e.logger.Info("pipeline run finished pipeline=%s run_id=%s status=%s duration=%s",
		p.Name, runID, report.Status, report.Duration)

	return report, nil
}

// executeStep drives a single step through resolution, projection, invocation
// and merge. Any failure before or during invocation degrades the step to its
// fallback; a failing fallback is the only terminal outcome.
func (e *Engine) executeStep(ctx context.Context, step pipeline.StepSpec, wfCtx *core.WorkflowContext) core.StepResult {
	started := time.Now()

	result := core.StepResult{
		Step:       step.Name,
		Capability: step.RequiredCapability,
	}

	candidates := e.registry.FindByCapability(step.RequiredCapability)
	if len(candidates) == 0 {
		e.logger.Warn("no agent provides capability %s for step %s", step.RequiredCapability, step.Name)
		return e.degrade(step, wfCtx, result, started,
			fmt.Errorf("no registered agent provides capability %q", step.RequiredCapability))
	}

	agent := candidates[0]
	result.AgentID = agent.AgentID

	adapter, ok := e.Adapter(agent.AgentType)
	if !ok {
		e.logger.Warn("no adapter registered for agent type %s (agent %s)", agent.AgentType, agent.AgentID)
		return e.degrade(step, wfCtx, result, started,
			core.NewAdapterError(agent.AgentID, agent.AgentType,
				fmt.Errorf("no adapter registered for agent type %q", agent.AgentType)))
	}

	req, err := e.project(step, wfCtx)
	if err != nil {
		return e.degrade(step, wfCtx, result, started,
			fmt.Errorf("input projection for step %q: %w", step.Name, err))
	}

	output, err := e.invoke(ctx, adapter, agent, step, req)
	if err != nil {
		return e.degrade(step, wfCtx, result, started, err)
	}

	if err := wfCtx.MergeAt(step.OutputMergeKey, output); err != nil {
		return e.degrade(step, wfCtx, result, started,
			fmt.Errorf("merging output of step %q at %q: %w", step.Name, step.OutputMergeKey, err))
	}

	result.Status = core.StepCompleted
	result.Output = output
	result.Duration = time.Since(started)

	return result
}

// project builds the adapter request for a step. A nil projection passes the
// full context snapshot with the step name as task.
func (e *Engine) project(step pipeline.StepSpec, wfCtx *core.WorkflowContext) (core.Request, error) {
	if step.InputProjection == nil {
		return core.Request{Task: step.Name, Data: wfCtx.Snapshot()}, nil
	}
	return step.InputProjection(wfCtx)
}

// invoke calls the adapter under a hard deadline. The call runs in its own
// goroutine so a hung adapter cannot stall the run; the result channel is
// buffered so the goroutine never leaks even after a timeout.
func (e *Engine) invoke(ctx context.Context, adapter core.Adapter, agent core.AgentDescriptor, step pipeline.StepSpec, req core.Request) (map[string]any, error) {
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		output map[string]any
		err    error
	}

	ch := make(chan outcome, 1)
	started := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("adapter panicked: %v", r)}
			}
		}()

		output, err := adapter.Invoke(callCtx, agent.Config, req)
		ch <- outcome{output: output, err: err}
	}()

	select {
	case <-callCtx.Done():
		err := core.NewAdapterError(agent.AgentID, agent.AgentType,
			fmt.Errorf("invocation exceeded %s: %w", timeout, callCtx.Err()))
		e.logger.Error("adapter call failed agent=%s type=%s duration=%s: %v",
			agent.AgentID, agent.AgentType, time.Since(started), err)
		return nil, err
	case out := <-ch:
		if out.err != nil {
			err := core.NewAdapterError(agent.AgentID, agent.AgentType, out.err)
			e.logger.Error("adapter call failed agent=%s type=%s duration=%s: %v",
				agent.AgentID, agent.AgentType, time.Since(started), err)
			return nil, err
		}
		e.logger.Debug("adapter call completed agent=%s type=%s duration=%s",
			agent.AgentID, agent.AgentType, time.Since(started))
		return out.output, nil
	}
}

// degrade runs the step fallback after an invocation failure. Fallback output
// is merged like regular output so downstream steps consume it transparently.
// A failing or panicking fallback marks the step failed, which aborts the run.
func (e *Engine) degrade(step pipeline.StepSpec, wfCtx *core.WorkflowContext, result core.StepResult, started time.Time, cause error) core.StepResult {
	result.ErrorDetail = cause.Error()

	output, err := e.runFallback(step, wfCtx)
	if err != nil {
		fbErr := &core.FallbackError{Step: step.Name, Err: err}
		result.Status = core.StepFailed
		result.Duration = time.Since(started)
		result.ErrorDetail = fmt.Sprintf("%s; %s", cause.Error(), fbErr.Error())
		e.logger.Error("step %s failed: %s", step.Name, result.ErrorDetail)
		return result
	}

	if err := wfCtx.MergeAt(step.OutputMergeKey, output); err != nil {
		result.Status = core.StepFailed
		result.Duration = time.Since(started)
		result.ErrorDetail = fmt.Sprintf("%s; merging fallback output: %s", cause.Error(), err.Error())
		return result
	}

	result.Status = core.StepDegraded
	result.Output = output
	result.FallbackUsed = true
	result.Duration = time.Since(started)

	e.logger.Warn("step %s degraded to fallback output: %s", step.Name, result.ErrorDetail)

	return result
}

func (e *Engine) runFallback(step pipeline.StepSpec, wfCtx *core.WorkflowContext) (output map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallback panicked: %v", r)
		}
	}()

	return step.Fallback(wfCtx)
}
