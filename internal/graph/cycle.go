package graph

import (
	"slices"

	"github.com/petrijr/deepflow/pkg/api"
)

type color uint8

const (
	white color = iota // unvisited
	gray               // on the current DFS path
	black              // fully explored, known acyclic
)

// DetectCycle runs a three-colour depth-first search over the dependency
// relation. Roots are visited in insertion order and dependencies in list
// order, so the reported witness is deterministic for a given graph.
//
// Dependencies naming unknown steps are skipped.
func (g *Graph) DetectCycle() error {
	colors := make(map[string]color, len(g.steps))
	var path []string

	var visit func(id string) *api.CycleError
	visit = func(id string) *api.CycleError {
		colors[id] = gray
		path = append(path, id)

		for _, dep := range g.steps[g.stepIndex[id]].Dependencies {
			if !g.HasStep(dep) {
				continue
			}
			switch colors[dep] {
			case gray:
				start := slices.Index(path, dep)
				witness := append(slices.Clone(path[start:]), dep)
				return &api.CycleError{Path: witness}
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		colors[id] = black
		return nil
	}

	for _, s := range g.steps {
		if colors[s.ID] != white {
			continue
		}
		if err := visit(s.ID); err != nil {
			return err
		}
	}
	return nil
}
