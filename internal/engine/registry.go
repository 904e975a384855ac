package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/janngomaa/ai-job-application/pkg/flow"
)

// registry is the static binding of event kind to the steps that accept it.
// It is built once when a workflow is registered and never mutated afterwards,
// so runs read it without locking.
type registry struct {
	def    flow.WorkflowDefinition
	byKind map[flow.Kind][]flow.StepDefinition
}

func buildRegistry(def flow.WorkflowDefinition) (*registry, error) {
	if def.Name == "" {
		return nil, errors.New("workflow name is required")
	}
	if len(def.Steps) == 0 {
		return nil, errors.New("workflow must have at least one step")
	}

	byKind := make(map[flow.Kind][]flow.StepDefinition)
	names := make(map[string]bool, len(def.Steps))
	responseSteps := 0

	for _, step := range def.Steps {
		if step.Name == "" {
			return nil, errors.New("step name must not be empty")
		}
		if names[step.Name] {
			return nil, fmt.Errorf("duplicate step name: %s", step.Name)
		}
		names[step.Name] = true

		if step.Fn == nil {
			return nil, fmt.Errorf("step %s has nil handler", step.Name)
		}
		if len(step.Accepts) == 0 {
			return nil, fmt.Errorf("step %s accepts no event kinds", step.Name)
		}

		for _, kind := range step.Accepts {
			switch kind {
			case flow.KindStop, flow.KindInputRequired:
				// Reserved: the dispatcher consumes these itself.
				return nil, fmt.Errorf("step %s may not accept reserved kind %s", step.Name, kind)
			case flow.KindHumanResponse:
				responseSteps++
			}
			byKind[kind] = append(byKind[kind], step)
		}
	}

	if len(byKind[flow.KindStart]) == 0 {
		return nil, errors.New("workflow has no step accepting the start event")
	}
	if responseSteps > 1 {
		return nil, errors.New("workflow may declare at most one step accepting human_response")
	}

	return &registry{def: def, byKind: byKind}, nil
}

// match returns every step whose accept set contains kind. The returned slice
// is shared; callers must not mutate it.
func (r *registry) match(kind flow.Kind) []flow.StepDefinition {
	return r.byKind[kind]
}

func (r *registry) timeout() time.Duration {
	if r.def.Timeout > 0 {
		return r.def.Timeout
	}
	return flow.DefaultTimeout
}
