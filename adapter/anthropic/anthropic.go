// Package anthropic provides a direct synchronous API adapter backed by the
// Anthropic Claude Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/agentpipe/adapter"
	"github.com/hupe1980/agentpipe/core"
)

// Options configure the Anthropic adapter (model id, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Adapter wraps the Anthropic Messages API behind core.Adapter.
type Adapter struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic adapter using the official client.
func New(optFns ...func(o *Options)) *Adapter {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Adapter{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic adapter from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Adapter {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Adapter{client: client, opts: opts}
}

// Invoke sends the rendered request as a single-turn message. The descriptor
// config may override the model ("model") and supply a system prompt
// ("system_prompt").
func (a *Adapter) Invoke(ctx context.Context, config map[string]any, req core.Request) (map[string]any, error) {
	model := a.opts.Model
	if m, ok := config["model"].(string); ok && m != "" {
		model = anthropic.Model(m)
	}

	params := anthropic.MessageNewParams{
		Model:       model,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: anthropic.Float(a.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(adapter.RenderMessage(req))),
		},
	}

	if sys, ok := config["system_prompt"].(string); ok && sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}

	if sb.Len() == 0 {
		return nil, fmt.Errorf("anthropic returned no text content")
	}

	return map[string]any{
		"response": sb.String(),
		"model":    string(resp.Model),
	}, nil
}

// Health sends a minimal single-token request as a reachability probe.
func (a *Adapter) Health(ctx context.Context, _ map[string]any) bool {
	_, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.opts.Model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	return err == nil
}
