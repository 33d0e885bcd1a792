package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/logging"
)

// PollingOptions configures the submit-then-poll adapter.
type PollingOptions struct {
	// HTTPClient used for submit and status requests.
	HTTPClient *http.Client
	// PollInterval is the delay between status checks.
	PollInterval time.Duration
	// HealthTimeout bounds the reachability probe.
	HealthTimeout time.Duration
	// Logger for poll-loop diagnostics.
	Logger logging.Logger
}

// Polling invokes agents whose call pattern is "submit now, poll later":
// a POST to <endpoint_url>/message enqueues the work and returns a thread id,
// then GET <endpoint_url>/status?threadId=... is polled until the thread
// reaches a terminal state. The entire loop is encapsulated here; callers see
// one blocking Invoke bounded by their context deadline.
//
// The endpoint wraps its JSON in an API-Gateway-style envelope: the outer
// object carries the real payload as a JSON string under "body".
type Polling struct {
	client        *http.Client
	pollInterval  time.Duration
	healthTimeout time.Duration
	logger        logging.Logger
}

// NewPolling constructs a polling adapter with optional overrides.
func NewPolling(optFns ...func(o *PollingOptions)) *Polling {
	opts := PollingOptions{
		HTTPClient:    &http.Client{},
		PollInterval:  5 * time.Second,
		HealthTimeout: 3 * time.Second,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Polling{
		client:        opts.HTTPClient,
		pollInterval:  opts.PollInterval,
		healthTimeout: opts.HealthTimeout,
		logger:        opts.Logger,
	}
}

// threadState is the inner payload of both submit and status responses.
type threadState struct {
	ThreadID string `json:"threadId"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Invoke submits the request and polls until the thread completes, fails or
// ctx expires. On completion the agent's text response is returned under
// "response" together with the thread id.
func (p *Polling) Invoke(ctx context.Context, config map[string]any, req core.Request) (map[string]any, error) {
	endpoint, err := configString(config, "endpoint_url")
	if err != nil {
		return nil, err
	}

	state, err := p.submit(ctx, endpoint, config, req)
	if err != nil {
		return nil, err
	}

	if state.ThreadID == "" {
		return nil, fmt.Errorf("submit accepted but no threadId received")
	}

	p.logger.Debug("polling submitted thread_id=%s status=%s", state.ThreadID, state.Status)

	return p.waitForCompletion(ctx, endpoint, state.ThreadID)
}

func (p *Polling) submit(ctx context.Context, endpoint string, config map[string]any, req core.Request) (*threadState, error) {
	payload := map[string]any{
		"role":    "user",
		"message": RenderMessage(req),
	}
	if sys := optionalConfigString(config, "system_prompt", ""); sys != "" {
		payload["system_prompt"] = sys
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal submit payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/message", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submit message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("submit returned status %d", resp.StatusCode)
	}

	return decodeEnvelope(resp.Body)
}

func (p *Polling) waitForCompletion(ctx context.Context, endpoint, threadID string) (map[string]any, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("thread %s: %w", threadID, ctx.Err())
		case <-ticker.C:
		}

		attempts++
		state, err := p.pollStatus(ctx, endpoint, threadID)
		if err != nil {
			// Transient status failures are retried until the deadline.
			p.logger.Warn("polling status error thread_id=%s attempt=%d: %v", threadID, attempts, err)
			continue
		}

		switch state.Status {
		case "completed":
			p.logger.Debug("polling completed thread_id=%s attempts=%d", threadID, attempts)
			return map[string]any{
				"response":  state.Response,
				"thread_id": threadID,
				"status":    "completed",
			}, nil
		case "error":
			detail := state.Error
			if detail == "" {
				detail = "unknown error"
			}
			return nil, fmt.Errorf("thread %s failed: %s", threadID, detail)
		default:
			p.logger.Debug("polling pending thread_id=%s status=%s attempt=%d", threadID, state.Status, attempts)
		}
	}
}

func (p *Polling) pollStatus(ctx context.Context, endpoint, threadID string) (*threadState, error) {
	statusURL := fmt.Sprintf("%s/status?threadId=%s", endpoint, url.QueryEscape(threadID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("check status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status check returned %d", resp.StatusCode)
	}

	return decodeEnvelope(resp.Body)
}

// decodeEnvelope unwraps the gateway envelope: {"body": "<json string>"}.
func decodeEnvelope(r io.Reader) (*threadState, error) {
	var outer struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r).Decode(&outer); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	if outer.Body == "" {
		return nil, fmt.Errorf("response envelope has no body")
	}

	var state threadState
	if err := json.Unmarshal([]byte(outer.Body), &state); err != nil {
		return nil, fmt.Errorf("decode envelope body: %w", err)
	}

	return &state, nil
}

// Health probes the endpoint's status resource. The gateway answers probe
// requests without a threadId with a client error, which still proves
// reachability.
func (p *Polling) Health(ctx context.Context, config map[string]any) bool {
	endpoint, err := configString(config, "endpoint_url")
	if err != nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.healthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(probeCtx, http.MethodGet, endpoint+"/status", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return true
}
