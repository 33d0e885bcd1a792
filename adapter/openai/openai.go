// Package openai provides a direct synchronous API adapter backed by the
// OpenAI Chat Completions API. The vendor request/response shapes stay fully
// inside this package; the engine sees only the uniform adapter contract.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentpipe/adapter"
	"github.com/hupe1980/agentpipe/core"
)

// Options configure the OpenAI adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Adapter wraps the OpenAI Chat Completions API behind core.Adapter.
type Adapter struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI adapter using the official client with its
// environment-based credentials.
func New(optFns ...func(o *Options)) *Adapter {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI adapter from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Adapter {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Adapter{client: client, opts: opts}
}

// Invoke sends the rendered request as a single-turn chat completion. The
// descriptor config may override the model ("model") and supply a system
// prompt ("system_prompt").
func (a *Adapter) Invoke(ctx context.Context, config map[string]any, req core.Request) (map[string]any, error) {
	model := a.opts.Model
	if m, ok := config["model"].(string); ok && m != "" {
		model = m
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if sys, ok := config["system_prompt"].(string); ok && sys != "" {
		messages = append(messages, openai.SystemMessage(sys))
	}
	messages = append(messages, openai.UserMessage(adapter.RenderMessage(req)))

	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               model,
		Temperature:         openai.Float(a.opts.Temperature),
		MaxCompletionTokens: openai.Int(a.opts.MaxCompletionTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return map[string]any{
		"response": completion.Choices[0].Message.Content,
		"model":    completion.Model,
	}, nil
}

// Health lists models as a cheap authenticated reachability probe.
func (a *Adapter) Health(ctx context.Context, _ map[string]any) bool {
	_, err := a.client.Models.List(ctx)
	return err == nil
}
