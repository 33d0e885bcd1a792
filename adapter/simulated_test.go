package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/agentpipe/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulated_Invoke_GeneratesEnrichmentData(t *testing.T) {
	sim := NewSimulated(func(o *SimulatedOptions) { o.Seed = 7 })

	out, err := sim.Invoke(context.Background(), map[string]any{"deployment_id": "d12a3b4c"}, core.Request{
		Task: "enrich customer",
		Data: map[string]any{"customer_id": "12345"},
	})
	require.NoError(t, err)

	assert.Equal(t, "12345", out["customer_id"])
	assert.Equal(t, "d12a3b4c", out["deployment_id"])

	account, ok := out["account_status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ERP-12345", account["account_number"])
	assert.Equal(t, "active", account["status"])

	summary, ok := out["eligibility_summary"].(map[string]any)
	require.True(t, ok)
	recommended, ok := summary["recommended_programs"].([]string)
	require.True(t, ok)
	assert.Equal(t, len(recommended), summary["total_programs_eligible"])
}

func TestSimulated_Invoke_UnknownCustomer(t *testing.T) {
	sim := NewSimulated(func(o *SimulatedOptions) { o.Seed = 1 })

	out, err := sim.Invoke(context.Background(), nil, core.Request{Task: "enrich"})
	require.NoError(t, err)
	assert.Equal(t, "unknown", out["customer_id"])
}

func TestSimulated_Invoke_LatencyRespectsContext(t *testing.T) {
	sim := NewSimulated(func(o *SimulatedOptions) {
		o.Seed = 1
		o.Latency = time.Minute
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := sim.Invoke(ctx, nil, core.Request{Task: "enrich"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimulated_Health(t *testing.T) {
	sim := NewSimulated()
	assert.True(t, sim.Health(context.Background(), nil))
}
