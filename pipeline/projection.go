package pipeline

import (
	"fmt"
	"maps"

	"github.com/hupe1980/agentpipe/core"
)

// ProjectAll returns a projection sending the whole context snapshot as the
// request data with the given task instruction.
func ProjectAll(task string) ProjectionFunc {
	return func(wfCtx *core.WorkflowContext) (core.Request, error) {
		return core.Request{Task: task, Data: wfCtx.Snapshot()}, nil
	}
}

// ProjectKeys returns a projection picking the listed top-level context keys.
// Missing keys are skipped so early steps can project keys produced later in
// other pipelines sharing a definition.
func ProjectKeys(task string, keys ...string) ProjectionFunc {
	return func(wfCtx *core.WorkflowContext) (core.Request, error) {
		data := make(map[string]any, len(keys))
		for _, k := range keys {
			if v, ok := wfCtx.Get(k); ok {
				data[k] = v
			}
		}
		return core.Request{Task: task, Data: data}, nil
	}
}

// ProjectPaths returns a projection mapping request data fields to gjson
// paths into the context, e.g.
//
//	ProjectPaths("consult", map[string]string{
//	    "profile": "customer_profile",
//	    "bill":    "sap_enterprise_data.billing_history.average_monthly_bill",
//	})
//
// A missing path is an error: path projections express hard data dependencies
// on prior steps, and with the fallback policy every prior merge key is
// guaranteed to be populated.
func ProjectPaths(task string, fields map[string]string) ProjectionFunc {
	return func(wfCtx *core.WorkflowContext) (core.Request, error) {
		data := make(map[string]any, len(fields))
		for field, path := range fields {
			v, ok := wfCtx.Lookup(path)
			if !ok {
				return core.Request{}, fmt.Errorf("projection path %q for field %q not present in context", path, field)
			}
			data[field] = v
		}
		return core.Request{Task: task, Data: data}, nil
	}
}

// StaticFallback returns a fallback generator producing a copy of the given
// synthetic payload on every call.
func StaticFallback(data map[string]any) FallbackFunc {
	return func(_ *core.WorkflowContext) (map[string]any, error) {
		out := make(map[string]any, len(data))
		maps.Copy(out, data)
		return out, nil
	}
}
