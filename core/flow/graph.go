package flow

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrStepNotFound indicates a start/goto target that is not registered.
var ErrStepNotFound = errors.New("flow: step not found")

// Graph is the immutable registry of steps of one named flow. It is built
// once at startup and read concurrently afterwards.
type Graph struct {
	name  string
	steps map[string]*Step
	order []string
}

// NewGraph creates an empty graph for the named flow.
func NewGraph(name string) *Graph {
	return &Graph{
		name:  name,
		steps: make(map[string]*Step),
	}
}

// Name returns the flow name.
func (g *Graph) Name() string {
	return g.name
}

// Register stores the step by id. Re-registering an id overwrites the prior
// definition; script authors must avoid duplicate ids.
func (g *Graph) Register(step *Step) {
	if step == nil || step.ID == "" {
		return
	}
	if _, exists := g.steps[step.ID]; !exists {
		g.order = append(g.order, step.ID)
	}
	g.steps[step.ID] = step
}

// Get returns the step by id or ErrStepNotFound.
func (g *Graph) Get(id string) (*Step, error) {
	step, ok := g.steps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStepNotFound, id)
	}
	return step, nil
}

// Steps returns all steps in registration order.
func (g *Graph) Steps() []*Step {
	out := make([]*Step, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.steps[id])
	}
	return out
}

// Validate checks the construction-time invariants of a fully built script:
// every goto and screenshot target must resolve to a registered step.
// Duplicate normalized labels within one step are reported as warnings only,
// matching the runtime last-wins behaviour.
func (g *Graph) Validate(log *slog.Logger) error {
	var errs []error
	for _, id := range g.order {
		step := g.steps[id]
		for _, a := range step.Answers() {
			target := a.Action.Target
			if target == "" {
				continue
			}
			switch a.Action.Kind {
			case ActionGoto, ActionScreenshot:
				if _, ok := g.steps[target]; !ok {
					errs = append(errs, fmt.Errorf("step %q answer %q: %w: %q", id, a.Label, ErrStepNotFound, target))
				}
			case ActionRaw, ActionUnknown:
			}
		}
		// surfaces duplicate-label collisions at build time
		BuildIndex(step.Answers(), log)
	}
	return errors.Join(errs...)
}
