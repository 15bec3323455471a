package graph

import (
	"fmt"
	"slices"

	"github.com/petrijr/deepflow/pkg/api"
)

// Graph stores the resources and steps of one flow in dense, ordered
// slices, with an id index over each. Steps reference resources and each
// other by id only.
//
// Graph is not safe for concurrent use; the owning flow serializes access.
type Graph struct {
	resources []api.Resource
	steps     []api.Step

	// id -> position of the first element with that id
	resIndex  map[string]int
	stepIndex map[string]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		resIndex:  make(map[string]int),
		stepIndex: make(map[string]int),
	}
}

// FromRecord builds a graph holding copies of resources and steps, in order,
// without checking any invariant. Use Validate before relying on them.
func FromRecord(resources []api.Resource, steps []api.Step) *Graph {
	g := New()
	g.resources = slices.Clone(resources)
	g.steps = make([]api.Step, 0, len(steps))
	for _, s := range steps {
		g.steps = append(g.steps, s.Clone())
	}
	g.reindex()
	return g
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	return FromRecord(g.resources, g.steps)
}

// Resources returns a copy of the resources in declaration order.
func (g *Graph) Resources() []api.Resource {
	out := slices.Clone(g.resources)
	if out == nil {
		out = []api.Resource{}
	}
	return out
}

// Steps returns a copy of the steps in insertion order.
func (g *Graph) Steps() []api.Step {
	out := make([]api.Step, 0, len(g.steps))
	for _, s := range g.steps {
		out = append(out, s.Clone())
	}
	return out
}

// Resource looks up a resource by id.
func (g *Graph) Resource(id string) (api.Resource, bool) {
	i, ok := g.resIndex[id]
	if !ok {
		return api.Resource{}, false
	}
	return g.resources[i], true
}

// Step looks up a step by id.
func (g *Graph) Step(id string) (api.Step, bool) {
	i, ok := g.stepIndex[id]
	if !ok {
		return api.Step{}, false
	}
	return g.steps[i].Clone(), true
}

// HasResource reports whether a resource with the given id exists.
func (g *Graph) HasResource(id string) bool {
	_, ok := g.resIndex[id]
	return ok
}

// HasStep reports whether a step with the given id exists.
func (g *Graph) HasStep(id string) bool {
	_, ok := g.stepIndex[id]
	return ok
}

// NumResources returns the number of resources.
func (g *Graph) NumResources() int { return len(g.resources) }

// NumSteps returns the number of steps.
func (g *Graph) NumSteps() int { return len(g.steps) }

// AddResource appends r. It rejects an empty or already declared id.
func (g *Graph) AddResource(r api.Resource) error {
	if r.ID == "" {
		return &api.MalformedError{Field: "resource.id", Msg: "must not be empty"}
	}
	if g.HasResource(r.ID) {
		return &api.DuplicateIDError{Kind: "resource", ID: r.ID}
	}
	g.resIndex[r.ID] = len(g.resources)
	g.resources = append(g.resources, r)
	return nil
}

// ReplaceResource swaps the record of an existing resource in place.
// Steps keep referencing it by id, so nothing cascades.
func (g *Graph) ReplaceResource(r api.Resource) error {
	i, ok := g.resIndex[r.ID]
	if !ok {
		return fmt.Errorf("%w: resource %q not found", api.ErrInvalidReference, r.ID)
	}
	g.resources[i] = r
	return nil
}

// RemoveResource removes every resource with the given id together with
// every step acting on it, and returns the ids of the removed steps.
//
// Dependencies other steps hold on the removed steps are left in place;
// Validate reports them.
func (g *Graph) RemoveResource(id string) []string {
	if !g.HasResource(id) {
		return nil
	}
	g.resources = slices.DeleteFunc(g.resources, func(r api.Resource) bool {
		return r.ID == id
	})

	var removed []string
	g.steps = slices.DeleteFunc(g.steps, func(s api.Step) bool {
		if s.Action.Resource == id {
			removed = append(removed, s.ID)
			return true
		}
		return false
	})
	g.reindex()
	return removed
}

// AddStep appends a copy of s after checking that its id is new, that its
// resource exists and that every dependency names an existing step. On
// error the graph is unchanged.
func (g *Graph) AddStep(s api.Step) error {
	if s.ID == "" {
		return &api.MalformedError{Field: "step.id", Msg: "must not be empty"}
	}
	if g.HasStep(s.ID) {
		return &api.DuplicateIDError{Kind: "step", ID: s.ID}
	}
	if !g.HasResource(s.Action.Resource) {
		return &api.ReferenceError{StepID: s.ID, Kind: "resource", Target: s.Action.Resource}
	}
	for _, dep := range s.Dependencies {
		if !g.HasStep(dep) {
			return &api.ReferenceError{StepID: s.ID, Kind: "dependency", Target: dep}
		}
	}
	g.stepIndex[s.ID] = len(g.steps)
	g.steps = append(g.steps, s.Clone())
	return nil
}

// RemoveStep removes every step with the given id and strips the id from
// the dependencies of the remaining steps. Dependents stay in the graph.
// It reports whether anything was removed.
func (g *Graph) RemoveStep(id string) bool {
	if !g.HasStep(id) {
		return false
	}
	g.steps = slices.DeleteFunc(g.steps, func(s api.Step) bool {
		return s.ID == id
	})
	for i := range g.steps {
		g.steps[i].Dependencies = slices.DeleteFunc(g.steps[i].Dependencies, func(dep string) bool {
			return dep == id
		})
	}
	g.reindex()
	return true
}

func (g *Graph) reindex() {
	clear(g.resIndex)
	clear(g.stepIndex)
	for i, r := range g.resources {
		if _, ok := g.resIndex[r.ID]; !ok {
			g.resIndex[r.ID] = i
		}
	}
	for i, s := range g.steps {
		if _, ok := g.stepIndex[s.ID]; !ok {
			g.stepIndex[s.ID] = i
		}
	}
}
