package engine

import (
	"context"
	"time"

	"github.com/hupe1980/agentpipe/core"
)

// DefaultProbeTimeout bounds a single agent health probe.
const DefaultProbeTimeout = 5 * time.Second

// AgentHealth is the probe outcome for a single registered agent.
type AgentHealth struct {
	AgentID      string            `json:"agent_id"`
	AgentType    string            `json:"agent_type"`
	Capabilities []core.Capability `json:"capabilities"`
	Healthy      bool              `json:"healthy"`
}

// HealthReport summarizes a probe sweep over the whole registry.
type HealthReport struct {
	Agents  []AgentHealth `json:"agents"`
	Healthy int           `json:"healthy"`
	Total   int           `json:"total"`
}

// HealthCheck probes every registered agent through its adapter. Agents whose
// type has no registered adapter report unhealthy. Probes run sequentially in
// registration order, each under its own timeout, so a single slow agent
// cannot block the sweep indefinitely.
func (e *Engine) HealthCheck(ctx context.Context) HealthReport {
	agents := e.registry.ListAll()

	report := HealthReport{
		Agents: make([]AgentHealth, 0, len(agents)),
		Total:  len(agents),
	}

	for _, agent := range agents {
		h := AgentHealth{
			AgentID:      agent.AgentID,
			AgentType:    agent.AgentType,
			Capabilities: agent.Capabilities,
		}

		if adapter, ok := e.Adapter(agent.AgentType); ok {
			h.Healthy = e.probe(ctx, adapter, agent.Config)
		} else {
			e.logger.Warn("health check: no adapter registered for agent type %s", agent.AgentType)
		}

		if h.Healthy {
			report.Healthy++
		}

		report.Agents = append(report.Agents, h)
	}

	return report
}

// probe runs a single health check with panic containment so a misbehaving
// adapter reads as unhealthy instead of crashing the sweep.
func (e *Engine) probe(ctx context.Context, adapter core.Adapter, config map[string]any) (healthy bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("health probe panicked: %v", r)
			healthy = false
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
	defer cancel()

	return adapter.Health(probeCtx, config)
}
