package adapter

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentpipe/core"
)

// SimulatedOptions configures the simulated enterprise-data adapter.
type SimulatedOptions struct {
	// Latency is slept (context-aware) before answering to mimic a backend
	// system query. Zero answers immediately, which tests rely on.
	Latency time.Duration
	// Seed fixes the random source for reproducible output. Zero seeds from
	// the clock.
	Seed int64
}

// Simulated generates synthetic enterprise account data the way an ERP
// enrichment agent would return it: account status, billing history, energy
// consumption, contracts and program eligibility. It performs no network I/O
// and is used for demos, tests and as a stand-in while a real enrichment
// backend is provisioned.
type Simulated struct {
	latency time.Duration
	mu      sync.Mutex
	rng     *rand.Rand
}

// NewSimulated constructs a simulated adapter with optional overrides.
func NewSimulated(optFns ...func(o *SimulatedOptions)) *Simulated {
	opts := SimulatedOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Simulated{latency: opts.Latency, rng: rand.New(rand.NewSource(seed))}
}

// Invoke synthesizes an enrichment result for the customer referenced in the
// request data. The deployment id from config is echoed into the account
// number prefix so runs against different simulated deployments are
// distinguishable.
func (s *Simulated) Invoke(ctx context.Context, config map[string]any, req core.Request) (map[string]any, error) {
	if s.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.latency):
		}
	}

	customerID, _ := req.Data["customer_id"].(string)
	if customerID == "" {
		customerID = "unknown"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accountID := strings.ToUpper(customerID)
	if len(accountID) > 8 {
		accountID = accountID[:8]
	}

	paymentStanding := pick(s.rng, "excellent", "good", "fair")

	eligibility := map[string]any{
		"energy_efficiency_rebate": s.rng.Intn(3) > 0,
		"smart_thermostat_program": s.rng.Intn(4) > 0,
		"solar_incentive_program":  s.rng.Intn(2) > 0,
		"low_income_assistance":    false,
	}

	var recommended []string
	for program, v := range eligibility {
		if eligible, ok := v.(bool); ok && eligible {
			recommended = append(recommended, program)
		}
	}

	var restrictions []string
	if paymentStanding == "fair" {
		restrictions = append(restrictions, "some programs may require deposit or payment plan")
	}

	result := map[string]any{
		"customer_id": customerID,
		"account_status": map[string]any{
			"account_number":     fmt.Sprintf("ERP-%s", accountID),
			"account_type":       "residential",
			"status":             "active",
			"payment_standing":   paymentStanding,
			"account_age_months": 12 + s.rng.Intn(108),
		},
		"billing_history": map[string]any{
			"average_monthly_bill": 120 + s.rng.Float64()*80,
			"peak_usage_month":     pick(s.rng, "July", "August", "January"),
			"billing_trend":        pick(s.rng, "increasing", "stable", "decreasing"),
		},
		"energy_consumption": map[string]any{
			"average_kwh_monthly": 600 + s.rng.Intn(600),
			"usage_pattern":       pick(s.rng, "consistent", "seasonal_peaks", "irregular"),
		},
		"program_eligibility": eligibility,
		"eligibility_summary": map[string]any{
			"total_programs_eligible": len(recommended),
			"recommended_programs":    recommended,
			"restrictions":            restrictions,
		},
	}

	if deployment := optionalConfigString(config, "deployment_id", ""); deployment != "" {
		result["deployment_id"] = deployment
	}

	return result, nil
}

// Health always reports true; the generator has no backend to be unreachable.
func (s *Simulated) Health(_ context.Context, _ map[string]any) bool { return true }

func pick(rng *rand.Rand, choices ...string) string {
	return choices[rng.Intn(len(choices))]
}
