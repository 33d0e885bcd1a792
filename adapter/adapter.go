package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentpipe/core"
)

// configString extracts a required string value from an adapter config map.
func configString(config map[string]any, key string) (string, error) {
	v, ok := config[key]
	if !ok {
		return "", fmt.Errorf("adapter config missing %q", key)
	}

	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("adapter config %q must be a non-empty string", key)
	}

	return s, nil
}

// optionalConfigString extracts an optional string value, returning the
// fallback when absent or not a string.
func optionalConfigString(config map[string]any, key, fallback string) string {
	if s, ok := config[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// RenderMessage flattens a normalized request into a prose prompt: the task
// instruction followed by the structured input as indented JSON. Model-backed
// and conversational agents consume this shape.
func RenderMessage(req core.Request) string {
	if len(req.Data) == 0 {
		return req.Task
	}

	js, err := json.MarshalIndent(req.Data, "", "  ")
	if err != nil {
		return req.Task
	}

	return fmt.Sprintf("%s\n\nInput data:\n%s", req.Task, js)
}
