// Package agentpipe provides a high-level façade over the capability
// registry and the pipeline engine. Most applications interact with this
// package by:
//  1. Creating an AgentPipe via New() (optionally overriding the logger and
//     default step timeout)
//  2. Registering agent descriptors and one adapter per agent type
//  3. Running pipelines (Run) and probing the fleet (HealthCheck)
//
// The façade delegates execution to engine.Engine while keeping setup and
// usage ergonomics concise. Defaults are safe for local development and
// testing; production deployments typically supply a structured logger.
package agentpipe

import (
	"context"
	"time"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/engine"
	"github.com/hupe1980/agentpipe/logging"
	"github.com/hupe1980/agentpipe/pipeline"
	"github.com/hupe1980/agentpipe/registry"
)

// Options configures the AgentPipe instance.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// DefaultStepTimeout bounds adapter invocations for steps that do not
	// set their own timeout.
	DefaultStepTimeout time.Duration
}

// AgentPipe is the high-level façade aggregating the registry and engine.
type AgentPipe struct {
	registry *registry.Registry
	engine   *engine.Engine
}

// New creates a new AgentPipe instance with optional overrides.
func New(optFns ...func(o *Options)) *AgentPipe {
	opts := Options{
		Logger:             logging.NoOpLogger{},
		DefaultStepTimeout: engine.DefaultStepTimeout,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	reg := registry.New()

	eng := engine.New(reg, func(o *engine.Options) {
		o.Logger = opts.Logger
		o.DefaultTimeout = opts.DefaultStepTimeout
	})

	return &AgentPipe{registry: reg, engine: eng}
}

// RegisterAgent adds or replaces an agent descriptor in the registry.
func (p *AgentPipe) RegisterAgent(d core.AgentDescriptor) error {
	return p.registry.Register(d)
}

// DeregisterAgent removes an agent descriptor from the registry.
func (p *AgentPipe) DeregisterAgent(agentID string) error {
	return p.registry.Deregister(agentID)
}

// RegisterAdapter binds an adapter to an agent type.
func (p *AgentPipe) RegisterAdapter(agentType string, a core.Adapter) {
	p.engine.RegisterAdapter(agentType, a)
}

// Registry exposes the underlying registry for direct queries.
func (p *AgentPipe) Registry() *registry.Registry {
	return p.registry
}

// Run executes a pipeline against the registered agents.
func (p *AgentPipe) Run(ctx context.Context, pl *pipeline.Pipeline, input map[string]any) (core.WorkflowReport, error) {
	return p.engine.Run(ctx, pl, input)
}

// HealthCheck probes every registered agent through its adapter.
func (p *AgentPipe) HealthCheck(ctx context.Context) engine.HealthReport {
	return p.engine.HealthCheck(ctx)
}
