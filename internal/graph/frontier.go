package graph

import "github.com/petrijr/deepflow/pkg/api"

// Frontier returns, in insertion order, every step not in executed whose
// dependencies are all in executed.
func (g *Graph) Frontier(executed map[string]bool) []api.Step {
	var ready []api.Step
	for _, s := range g.steps {
		if executed[s.ID] {
			continue
		}
		blocked := false
		for _, dep := range s.Dependencies {
			if !executed[dep] {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, s.Clone())
		}
	}
	return ready
}

// Pending returns the ids of the steps not in executed, in insertion order.
func (g *Graph) Pending(executed map[string]bool) []string {
	var out []string
	for _, s := range g.steps {
		if !executed[s.ID] {
			out = append(out, s.ID)
		}
	}
	return out
}
