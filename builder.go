package deepflow

import (
	"errors"

	"github.com/google/uuid"
)

// FlowBuilder provides a fluent API for assembling a flow by hand:
//
//	flow, err := deepflow.NewBuilder("summarize quarterly sales").
//	    Resource("db", "postgres", "aws").
//	    Resource("llm", "model", "local").
//	    Step("load", "db", "SELECT * FROM sales", "rows").
//	    Step("report", "llm", "summarize", "report", "load").
//	    Build()
//
// Steps may reference resources and steps declared later; everything is
// checked once, by Build.
type FlowBuilder struct {
	id       string
	intent   string
	metadata map[string]Value
	res      []Resource
	steps    []Step
}

// NewBuilder starts a flow for the given intent. The flow id defaults to a
// random UUID.
func NewBuilder(intent string) *FlowBuilder {
	return &FlowBuilder{
		intent:   intent,
		metadata: make(map[string]Value),
	}
}

// ID sets the flow id.
func (b *FlowBuilder) ID(id string) *FlowBuilder {
	b.id = id
	return b
}

// Metadata sets one metadata entry.
func (b *FlowBuilder) Metadata(key string, value Value) *FlowBuilder {
	b.metadata[key] = value
	return b
}

// Resource declares a resource.
func (b *FlowBuilder) Resource(id, typ, provider string) *FlowBuilder {
	b.res = append(b.res, Resource{ID: id, Type: typ, Provider: provider})
	return b
}

// Step appends a step acting on resource, depending on the given steps.
func (b *FlowBuilder) Step(id, resource, query, output string, dependsOn ...string) *FlowBuilder {
	b.steps = append(b.steps, Step{
		ID:           id,
		Dependencies: dependsOn,
		Action:       Action{Resource: resource, Query: query, Output: output},
	})
	return b
}

// Build validates the assembled graph and returns the flow.
func (b *FlowBuilder) Build() (*Flow, error) {
	if b.intent == "" {
		return nil, &MalformedError{Field: "intent", Msg: "missing"}
	}
	id := b.id
	if id == "" {
		id = uuid.NewString()
	}
	f := NewFlow(id, b.intent,
		WithMetadata(b.metadata),
		WithResources(b.res...),
		WithSteps(b.steps...),
	)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// MustBuild is like Build but panics on error.
// Useful for fixed flows declared in main() or tests.
func (b *FlowBuilder) MustBuild() *Flow {
	f, err := b.Build()
	if err != nil {
		panic(errors.Join(errors.New("deepflow: invalid flow"), err))
	}
	return f
}
