package pipeline

import (
	"sort"
	"strings"

	"github.com/hupe1980/agentpipe/core"
)

// DefaultCapabilityMap maps task-description keywords to capability tags for
// callers that accept free-text tasks. Inference is a pure pre-processing
// concern feeding pipeline execution, never part of the engine itself.
var DefaultCapabilityMap = map[string]core.Capability{
	"customer": "customer_processing",
	"data":     "data_analysis",
	"process":  "data_processing",
	"invoice":  "invoice_processing",
	"energy":   "energy_consultation",
}

// InferCapability scans a free-text task description for known keywords and
// returns the capability of the first match. Keywords are checked in sorted
// order so inference is deterministic when several keywords occur. A nil
// mapping uses DefaultCapabilityMap.
func InferCapability(task string, mapping map[string]core.Capability) (core.Capability, bool) {
	if mapping == nil {
		mapping = DefaultCapabilityMap
	}

	keywords := make([]string, 0, len(mapping))
	for kw := range mapping {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	lowered := strings.ToLower(task)
	for _, kw := range keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return mapping[kw], true
		}
	}

	return "", false
}
