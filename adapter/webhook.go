package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/logging"
)

// WebhookOptions configures the webhook adapter.
type WebhookOptions struct {
	// HTTPClient used for all requests. Defaults to a client without its own
	// timeout; the engine's per-step deadline bounds each call.
	HTTPClient *http.Client
	// Source is stamped into every payload so receiving workflows can
	// identify the caller.
	Source string
	// HealthTimeout bounds the reachability probe.
	HealthTimeout time.Duration
	// Logger for request/response diagnostics.
	Logger logging.Logger
}

// Webhook invokes agents exposed as workflow-automation webhooks (n8n and
// similar). The wire shape is a JSON POST of {task, data, timestamp, source};
// responses arrive either as a plain object or as a single-element array
// whose first entry wraps the result under "output".
type Webhook struct {
	client        *http.Client
	source        string
	healthTimeout time.Duration
	logger        logging.Logger
}

// NewWebhook constructs a webhook adapter with optional overrides.
func NewWebhook(optFns ...func(o *WebhookOptions)) *Webhook {
	opts := WebhookOptions{
		HTTPClient:    &http.Client{},
		Source:        "agentpipe",
		HealthTimeout: 3 * time.Second,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Webhook{
		client:        opts.HTTPClient,
		source:        opts.Source,
		healthTimeout: opts.HealthTimeout,
		logger:        opts.Logger,
	}
}

// Invoke posts the request payload to config["webhook_url"] and normalizes
// the response. Non-2xx statuses, transport errors and malformed bodies are
// all surfaced as plain errors for the engine to degrade on.
func (w *Webhook) Invoke(ctx context.Context, config map[string]any, req core.Request) (map[string]any, error) {
	url, err := configString(config, "webhook_url")
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"task":      req.Task,
		"data":      req.Data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"source":    w.source,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	w.logger.Debug("webhook invoke url=%s task=%s", url, req.Task)

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}

	// Some workflows reply with an empty body on success.
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{"message": "success - no content"}, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode webhook response: %w", err)
	}

	return normalizeWebhookResponse(decoded), nil
}

// normalizeWebhookResponse unwraps the n8n array response shape: a
// single-element array whose first entry carries the result under "output".
func normalizeWebhookResponse(decoded any) map[string]any {
	if arr, ok := decoded.([]any); ok {
		if len(arr) == 0 {
			return map[string]any{"message": "success - no content"}
		}
		decoded = arr[0]
		if m, ok := decoded.(map[string]any); ok {
			if out, ok := m["output"]; ok {
				decoded = out
			}
		}
	}

	if m, ok := decoded.(map[string]any); ok {
		return m
	}

	return map[string]any{"result": decoded}
}

// Health probes the webhook URL with a GET. Workflow engines answer probe
// requests with client-error statuses when the webhook only accepts POST, so
// any response below 500 counts as reachable.
func (w *Webhook) Health(ctx context.Context, config map[string]any) bool {
	url, err := configString(config, "webhook_url")
	if err != nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, w.healthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}
