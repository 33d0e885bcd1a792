package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/pipeline"
	"github.com/hupe1980/agentpipe/registry"
)

// adapterFunc lets tests script adapter behavior per agent type.
type adapterFunc struct {
	invoke func(ctx context.Context, config map[string]any, req core.Request) (map[string]any, error)
	health func(ctx context.Context, config map[string]any) bool
}

func (a adapterFunc) Invoke(ctx context.Context, config map[string]any, req core.Request) (map[string]any, error) {
	return a.invoke(ctx, config, req)
}

func (a adapterFunc) Health(ctx context.Context, config map[string]any) bool {
	if a.health == nil {
		return true
	}
	return a.health(ctx, config)
}

func echoAdapter(key string) adapterFunc {
	return adapterFunc{
		invoke: func(_ context.Context, _ map[string]any, req core.Request) (map[string]any, error) {
			return map[string]any{key: req.Task}, nil
		},
	}
}

func failingAdapter(err error) adapterFunc {
	return adapterFunc{
		invoke: func(context.Context, map[string]any, core.Request) (map[string]any, error) {
			return nil, err
		},
	}
}

func newTestEngine(t *testing.T, agents ...core.AgentDescriptor) (*Engine, *registry.Registry) {
	t.Helper()

	reg := registry.New()
	for _, a := range agents {
		require.NoError(t, reg.Register(a))
	}

	return New(reg), reg
}

func descriptor(id, agentType string, caps ...core.Capability) core.AgentDescriptor {
	return core.AgentDescriptor{AgentID: id, AgentType: agentType, Capabilities: caps}
}

func step(name string, capability core.Capability) pipeline.StepSpec {
	return pipeline.StepSpec{
		Name:               name,
		RequiredCapability: capability,
		InputProjection:    pipeline.ProjectAll(name),
		OutputMergeKey:     name,
		Fallback:           pipeline.StaticFallback(map[string]any{"fallback": true, "step": name}),
	}
}

func TestRunAllStepsCompleted(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "webhook", "customer_processing"),
		descriptor("agent-b", "simulated", "data_enrichment"),
	)
	eng.RegisterAdapter("webhook", echoAdapter("processed"))
	eng.RegisterAdapter("simulated", echoAdapter("enriched"))

	p := pipeline.New("consultation",
		step("intake", "customer_processing"),
		step("enrich", "data_enrichment"),
	)

	report, err := eng.Run(context.Background(), p, map[string]any{"customer_id": "c-1"})
	require.NoError(t, err)

	assert.Equal(t, core.RunSuccess, report.Status)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "consultation", report.Pipeline)
	require.Len(t, report.Steps, 2)

	for _, s := range report.Steps {
		assert.Equal(t, core.StepCompleted, s.Status)
		assert.False(t, s.FallbackUsed)
		assert.Empty(t, s.ErrorDetail)
	}

	assert.Equal(t, "agent-a", report.Steps[0].AgentID)
	assert.Equal(t, "agent-b", report.Steps[1].AgentID)
}

func TestRunStepOutputVisibleToLaterSteps(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "producer", "produce"),
		descriptor("agent-b", "consumer", "consume"),
	)

	eng.RegisterAdapter("producer", adapterFunc{
		invoke: func(context.Context, map[string]any, core.Request) (map[string]any, error) {
			return map[string]any{"token": "xyz"}, nil
		},
	})

	var seen map[string]any
	eng.RegisterAdapter("consumer", adapterFunc{
		invoke: func(_ context.Context, _ map[string]any, req core.Request) (map[string]any, error) {
			seen = req.Data
			return map[string]any{"ok": true}, nil
		},
	})

	p := pipeline.New("chain",
		step("first", "produce"),
		step("second", "consume"),
	)

	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)
	require.Equal(t, core.RunSuccess, report.Status)

	require.Contains(t, seen, "first")
	assert.Equal(t, map[string]any{"token": "xyz"}, seen["first"])
}

func TestRunAdapterErrorDegradesStep(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "webhook", "customer_processing"),
		descriptor("agent-b", "broken", "energy_consultation"),
		descriptor("agent-c", "webhook2", "recommendation_validation"),
	)
	eng.RegisterAdapter("webhook", echoAdapter("out"))
	eng.RegisterAdapter("broken", failingAdapter(errors.New("upstream 502")))
	eng.RegisterAdapter("webhook2", echoAdapter("out"))

	p := pipeline.New("consultation",
		step("intake", "customer_processing"),
		step("consult", "energy_consultation"),
		step("validate", "recommendation_validation"),
	)

	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)

	assert.Equal(t, core.RunPartialSuccess, report.Status)
	require.Len(t, report.Steps, 3)

	assert.Equal(t, core.StepCompleted, report.Steps[0].Status)
	assert.Equal(t, core.StepCompleted, report.Steps[2].Status)

	degraded := report.Steps[1]
	assert.Equal(t, core.StepDegraded, degraded.Status)
	assert.True(t, degraded.FallbackUsed)
	assert.Equal(t, "agent-b", degraded.AgentID)
	assert.Contains(t, degraded.ErrorDetail, "upstream 502")
	assert.Equal(t, map[string]any{"fallback": true, "step": "consult"}, degraded.Output)
	assert.True(t, report.FallbackUsed())
}

func TestRunFallbackOutputFeedsLaterSteps(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "broken", "produce"),
		descriptor("agent-b", "consumer", "consume"),
	)
	eng.RegisterAdapter("broken", failingAdapter(errors.New("boom")))

	var seen map[string]any
	eng.RegisterAdapter("consumer", adapterFunc{
		invoke: func(_ context.Context, _ map[string]any, req core.Request) (map[string]any, error) {
			seen = req.Data
			return map[string]any{"ok": true}, nil
		},
	})

	p := pipeline.New("chain",
		step("first", "produce"),
		step("second", "consume"),
	)

	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, core.RunPartialSuccess, report.Status)

	require.Contains(t, seen, "first")
	assert.Equal(t, map[string]any{"fallback": true, "step": "first"}, seen["first"])
}

func TestRunNoAgentForCapability(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "webhook", "customer_processing"),
	)

	invoked := 0
	eng.RegisterAdapter("webhook", adapterFunc{
		invoke: func(context.Context, map[string]any, core.Request) (map[string]any, error) {
			invoked++
			return map[string]any{"ok": true}, nil
		},
	})

	p := pipeline.New("consultation",
		step("intake", "customer_processing"),
		step("consult", "energy_consultation"),
	)

	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)

	assert.Equal(t, core.RunPartialSuccess, report.Status)
	require.Len(t, report.Steps, 2)

	degraded := report.Steps[1]
	assert.Equal(t, core.StepDegraded, degraded.Status)
	assert.Empty(t, degraded.AgentID)
	assert.True(t, degraded.FallbackUsed)
	assert.Contains(t, degraded.ErrorDetail, "energy_consultation")

	// Only the resolvable step reached an adapter.
	assert.Equal(t, 1, invoked)
}

func TestRunMissingAdapterForAgentType(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "bedrock", "energy_consultation"),
	)

	p := pipeline.New("consultation", step("consult", "energy_consultation"))

	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)

	assert.Equal(t, core.RunPartialSuccess, report.Status)
	degraded := report.Steps[0]
	assert.Equal(t, core.StepDegraded, degraded.Status)
	assert.Equal(t, "agent-a", degraded.AgentID)
	assert.Contains(t, degraded.ErrorDetail, "bedrock")
}

func TestRunTimeoutDegradesStep(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "slow", "produce"),
	)
	eng.RegisterAdapter("slow", adapterFunc{
		invoke: func(ctx context.Context, _ map[string]any, _ core.Request) (map[string]any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	s := step("first", "produce")
	s.Timeout = 50 * time.Millisecond
	p := pipeline.New("slow", s)

	start := time.Now()
	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, core.RunPartialSuccess, report.Status)

	degraded := report.Steps[0]
	assert.Equal(t, core.StepDegraded, degraded.Status)
	assert.True(t, degraded.FallbackUsed)
	assert.Contains(t, degraded.ErrorDetail, "exceeded")
}

func TestRunAdapterPanicDegradesStep(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "panicky", "produce"),
	)
	eng.RegisterAdapter("panicky", adapterFunc{
		invoke: func(context.Context, map[string]any, core.Request) (map[string]any, error) {
			panic("nil map write")
		},
	})

	p := pipeline.New("panics", step("first", "produce"))

	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)

	assert.Equal(t, core.RunPartialSuccess, report.Status)
	assert.Equal(t, core.StepDegraded, report.Steps[0].Status)
	assert.Contains(t, report.Steps[0].ErrorDetail, "panicked")
}

func TestRunFallbackErrorAbortsRun(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "broken", "produce"),
		descriptor("agent-b", "webhook", "consume"),
	)
	eng.RegisterAdapter("broken", failingAdapter(errors.New("boom")))

	invoked := 0
	eng.RegisterAdapter("webhook", adapterFunc{
		invoke: func(context.Context, map[string]any, core.Request) (map[string]any, error) {
			invoked++
			return map[string]any{"ok": true}, nil
		},
	})

	s := step("first", "produce")
	s.Fallback = func(*core.WorkflowContext) (map[string]any, error) {
		return nil, errors.New("fallback store unreachable")
	}

	p := pipeline.New("aborts", s, step("second", "consume"))

	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)

	assert.Equal(t, core.RunFailure, report.Status)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, core.StepFailed, report.Steps[0].Status)
	assert.Contains(t, report.Steps[0].ErrorDetail, "fallback store unreachable")
	assert.Zero(t, invoked)
}

func TestRunFallbackPanicAbortsRun(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "broken", "produce"),
	)
	eng.RegisterAdapter("broken", failingAdapter(errors.New("boom")))

	s := step("first", "produce")
	s.Fallback = func(*core.WorkflowContext) (map[string]any, error) {
		panic("template missing")
	}

	p := pipeline.New("panics", s)

	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)

	assert.Equal(t, core.RunFailure, report.Status)
	assert.Equal(t, core.StepFailed, report.Steps[0].Status)
	assert.Contains(t, report.Steps[0].ErrorDetail, "panicked")
}

func TestRunFirstRegisteredAgentWins(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-old", "alpha", "produce"),
		descriptor("agent-new", "beta", "produce"),
	)

	var chosen string
	eng.RegisterAdapter("alpha", adapterFunc{
		invoke: func(context.Context, map[string]any, core.Request) (map[string]any, error) {
			chosen = "alpha"
			return map[string]any{"ok": true}, nil
		},
	})
	eng.RegisterAdapter("beta", adapterFunc{
		invoke: func(context.Context, map[string]any, core.Request) (map[string]any, error) {
			chosen = "beta"
			return map[string]any{"ok": true}, nil
		},
	})

	p := pipeline.New("pick", step("first", "produce"))

	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)

	assert.Equal(t, "alpha", chosen)
	assert.Equal(t, "agent-old", report.Steps[0].AgentID)
}

func TestRunProjectionErrorDegradesStep(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "webhook", "produce"),
	)
	eng.RegisterAdapter("webhook", echoAdapter("out"))

	s := step("first", "produce")
	s.InputProjection = func(*core.WorkflowContext) (core.Request, error) {
		return core.Request{}, fmt.Errorf("required field customer_id missing")
	}

	p := pipeline.New("projects", s)

	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)

	assert.Equal(t, core.RunPartialSuccess, report.Status)
	assert.Equal(t, core.StepDegraded, report.Steps[0].Status)
	assert.Contains(t, report.Steps[0].ErrorDetail, "customer_id")
}

func TestRunAgentConfigReachesAdapter(t *testing.T) {
	agent := descriptor("agent-a", "webhook", "produce")
	agent.Config = map[string]any{"webhook_url": "https://example.com/hook"}

	eng, _ := newTestEngine(t, agent)

	var seen map[string]any
	eng.RegisterAdapter("webhook", adapterFunc{
		invoke: func(_ context.Context, config map[string]any, _ core.Request) (map[string]any, error) {
			seen = config
			return map[string]any{"ok": true}, nil
		},
	})

	p := pipeline.New("configs", step("first", "produce"))

	_, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/hook", seen["webhook_url"])
}

func TestRunInputNotMutated(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "webhook", "produce"),
	)
	eng.RegisterAdapter("webhook", echoAdapter("out"))

	input := map[string]any{"customer_id": "c-1"}

	p := pipeline.New("isolated", step("first", "produce"))

	_, err := eng.Run(context.Background(), p, input)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"customer_id": "c-1"}, input)
}

func TestRunRepeatedRunsIndependent(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "webhook", "produce"),
	)

	calls := 0
	eng.RegisterAdapter("webhook", adapterFunc{
		invoke: func(_ context.Context, _ map[string]any, req core.Request) (map[string]any, error) {
			calls++
			// A leak of prior run state would surface as extra keys here.
			if _, ok := req.Data["first"]; ok {
				return nil, errors.New("stale context data from previous run")
			}
			return map[string]any{"n": calls}, nil
		},
	})

	p := pipeline.New("repeat", step("first", "produce"))

	first, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)
	second, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)

	assert.Equal(t, core.RunSuccess, first.Status)
	assert.Equal(t, core.RunSuccess, second.Status)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunDottedMergeKey(t *testing.T) {
	eng, _ := newTestEngine(t,
		descriptor("agent-a", "webhook", "produce"),
	)
	eng.RegisterAdapter("webhook", adapterFunc{
		invoke: func(context.Context, map[string]any, core.Request) (map[string]any, error) {
			return map[string]any{"score": 0.9}, nil
		},
	})

	var seen map[string]any
	eng.RegisterAdapter("consumer", adapterFunc{
		invoke: func(_ context.Context, _ map[string]any, req core.Request) (map[string]any, error) {
			seen = req.Data
			return map[string]any{"ok": true}, nil
		},
	})
	require.NoError(t, eng.registry.Register(descriptor("agent-b", "consumer", "consume")))

	s := step("first", "produce")
	s.OutputMergeKey = "analysis.validation"

	p := pipeline.New("nested", s, step("second", "consume"))

	report, err := eng.Run(context.Background(), p, nil)
	require.NoError(t, err)
	require.Equal(t, core.RunSuccess, report.Status)

	analysis, ok := seen["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, analysis, "validation")
}

func TestRunValidation(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Run(context.Background(), nil, nil)
	require.Error(t, err)

	_, err = eng.Run(context.Background(), pipeline.New("empty"), nil)
	require.Error(t, err)
}

func TestAggregate(t *testing.T) {
	completed := core.StepResult{Status: core.StepCompleted}
	degraded := core.StepResult{Status: core.StepDegraded}
	failed := core.StepResult{Status: core.StepFailed}

	tests := []struct {
		name  string
		steps []core.StepResult
		want  core.RunStatus
	}{
		{"all completed", []core.StepResult{completed, completed}, core.RunSuccess},
		{"one degraded", []core.StepResult{completed, degraded, completed}, core.RunPartialSuccess},
		{"failed dominates degraded", []core.StepResult{degraded, failed}, core.RunFailure},
		{"failed dominates completed", []core.StepResult{completed, failed}, core.RunFailure},
		{"empty", nil, core.RunSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.steps))
		})
	}
}
