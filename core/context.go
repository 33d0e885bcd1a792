package core

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// WorkflowContext is the single accumulating mapping from string key to
// structured value owned by one in-flight pipeline run. It is seeded with the
// caller's input payload; each step reads a projection of it and writes its
// output under its merge key. A context is never shared across concurrent
// runs, but it is still safe for concurrent access so adapters may read it
// from background goroutines.
//
// Contract:
//   - Mutations update the Updated timestamp
//   - Snapshot returns a defensive copy of the top-level map
//   - Lookup resolves dotted gjson paths over the JSON form of the state
type WorkflowContext struct {
	values  map[string]any
	created time.Time
	updated time.Time
	mu      sync.RWMutex
}

// NewWorkflowContext creates a context seeded with the given input payload.
// The seed map is copied; a nil seed yields an empty context.
func NewWorkflowContext(seed map[string]any) *WorkflowContext {
	now := time.Now()

	values := make(map[string]any, len(seed))
	maps.Copy(values, seed)

	return &WorkflowContext{values: values, created: now, updated: now}
}

// Get returns the value and existence flag for a top-level key.
func (c *WorkflowContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Set stores a value under a top-level key updating the Updated timestamp.
func (c *WorkflowContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	c.updated = time.Now()
}

// Merge copies all pairs from delta into the context.
func (c *WorkflowContext) Merge(delta map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.values, delta)
	c.updated = time.Now()
}

// MergeAt stores value under path. A plain key behaves like Set; a dotted
// path (e.g. "consultation.recommendations") is applied through the JSON form
// of the state, so intermediate objects are created as needed and the stored
// subtree is normalized to JSON value types.
func (c *WorkflowContext) MergeAt(path string, value any) error {
	if !strings.Contains(path, ".") {
		c.Set(path, value)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	js, err := json.Marshal(c.values)
	if err != nil {
		return fmt.Errorf("marshal workflow context: %w", err)
	}

	out, err := sjson.SetBytes(js, path, value)
	if err != nil {
		return fmt.Errorf("merge at path %q: %w", path, err)
	}

	values := map[string]any{}
	if err := json.Unmarshal(out, &values); err != nil {
		return fmt.Errorf("unmarshal workflow context: %w", err)
	}

	c.values = values
	c.updated = time.Now()

	return nil
}

// Lookup resolves a gjson path (e.g. "customer_profile.segment") against the
// JSON form of the state, returning the matched value and whether it exists.
func (c *WorkflowContext) Lookup(path string) (any, bool) {
	js, err := c.JSON()
	if err != nil {
		return nil, false
	}

	res := gjson.GetBytes(js, path)
	if !res.Exists() {
		return nil, false
	}

	return res.Value(), true
}

// Snapshot returns a copy of the top-level map to prevent callers from
// mutating internal state. Nested values are shared.
func (c *WorkflowContext) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := make(map[string]any, len(c.values))
	maps.Copy(snap, c.values)

	return snap
}

// JSON returns the state serialized as a JSON object.
func (c *WorkflowContext) JSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c.values)
}

// Len returns the number of top-level keys.
func (c *WorkflowContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Created returns the construction time of the context.
func (c *WorkflowContext) Created() time.Time { return c.created }

// Updated returns the time of the most recent mutation.
func (c *WorkflowContext) Updated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updated
}
