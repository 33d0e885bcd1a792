package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/agentpipe/core"
	"gopkg.in/yaml.v3"
)

// yamlPipeline is the on-disk shape of a declarative pipeline definition.
//
//	name: energy_consultation
//	steps:
//	  - name: process_customer
//	    capability: customer_processing
//	    task: process energy customer inquiry
//	    timeout: 30s
//	    merge_key: customer_profile
//	    input_keys: [customer_id, inquiry]
//	    fallback:
//	      profile_source: fallback
type yamlPipeline struct {
	Name  string     `yaml:"name"`
	Steps []yamlStep `yaml:"steps"`
}

type yamlStep struct {
	Name       string            `yaml:"name"`
	Capability string            `yaml:"capability"`
	Task       string            `yaml:"task"`
	Timeout    string            `yaml:"timeout"`
	MergeKey   string            `yaml:"merge_key"`
	InputKeys  []string          `yaml:"input_keys"`
	InputPaths map[string]string `yaml:"input_paths"`
	Fallback   map[string]any    `yaml:"fallback"`
}

// LoadYAML reads a declarative pipeline definition. Each step becomes a
// StepSpec: input_paths takes precedence over input_keys (both absent means
// the whole context is projected), and fallback becomes a StaticFallback of
// the given payload (an absent fallback yields an annotated empty payload so
// every loaded step satisfies the fallback invariant).
func LoadYAML(r io.Reader) (*Pipeline, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pipeline definition: %w", err)
	}

	return ParseYAML(raw)
}

// ParseYAML parses a declarative pipeline definition from bytes.
func ParseYAML(data []byte) (*Pipeline, error) {
	var def yamlPipeline
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse pipeline definition: %w", err)
	}

	p := &Pipeline{Name: def.Name, Steps: make([]StepSpec, 0, len(def.Steps))}

	for _, ys := range def.Steps {
		step := StepSpec{
			Name:               ys.Name,
			RequiredCapability: core.Capability(ys.Capability),
			OutputMergeKey:     ys.MergeKey,
		}

		if ys.Timeout != "" {
			d, err := time.ParseDuration(ys.Timeout)
			if err != nil {
				return nil, fmt.Errorf("step %q: invalid timeout %q: %w", ys.Name, ys.Timeout, err)
			}
			step.Timeout = d
		}

		switch {
		case len(ys.InputPaths) > 0:
			step.InputProjection = ProjectPaths(ys.Task, ys.InputPaths)
		case len(ys.InputKeys) > 0:
			step.InputProjection = ProjectKeys(ys.Task, ys.InputKeys...)
		default:
			step.InputProjection = ProjectAll(ys.Task)
		}

		fallback := ys.Fallback
		if fallback == nil {
			fallback = map[string]any{"fallback": true, "step": ys.Name}
		}
		step.Fallback = StaticFallback(fallback)

		p.Steps = append(p.Steps, step)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}
