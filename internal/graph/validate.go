package graph

import (
	"github.com/petrijr/deepflow/pkg/api"
)

// Validate checks every structural invariant of g and returns the first
// violation found, in this order:
//
//  1. duplicate resource ids, then duplicate step ids (DuplicateIDError)
//  2. per step in insertion order, its resource then each dependency
//     (ReferenceError)
//  3. dependency cycles (CycleError)
func (g *Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.resources))
	for _, r := range g.resources {
		if _, dup := seen[r.ID]; dup {
			return &api.DuplicateIDError{Kind: "resource", ID: r.ID}
		}
		seen[r.ID] = struct{}{}
	}

	seen = make(map[string]struct{}, len(g.steps))
	for _, s := range g.steps {
		if _, dup := seen[s.ID]; dup {
			return &api.DuplicateIDError{Kind: "step", ID: s.ID}
		}
		seen[s.ID] = struct{}{}
	}

	for _, s := range g.steps {
		if !g.HasResource(s.Action.Resource) {
			return &api.ReferenceError{StepID: s.ID, Kind: "resource", Target: s.Action.Resource}
		}
		for _, dep := range s.Dependencies {
			if !g.HasStep(dep) {
				return &api.ReferenceError{StepID: s.ID, Kind: "dependency", Target: dep}
			}
		}
	}

	return g.DetectCycle()
}
