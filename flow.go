package deepflow

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/petrijr/deepflow/internal/engine"
	"github.com/petrijr/deepflow/internal/graph"
	"github.com/petrijr/deepflow/pkg/api"
)

// Flow is a mutable graph of resources and steps together with its intent
// and metadata. All methods are safe for concurrent use.
//
// While Execute runs, the flow rejects mutations and further executions
// with ErrFlowBusy.
type Flow struct {
	mu       sync.Mutex
	id       string
	intent   string
	metadata map[string]Value
	g        *graph.Graph

	running bool
	state   ExecutionState
}

// Option configures a Flow built by NewFlow.
type Option func(*flowOptions)

type flowOptions struct {
	metadata  map[string]Value
	resources []Resource
	steps     []Step
}

// WithMetadata sets the initial metadata. The map is copied.
func WithMetadata(md map[string]Value) Option {
	return func(o *flowOptions) {
		o.metadata = maps.Clone(md)
	}
}

// WithResources appends initial resources.
func WithResources(rs ...Resource) Option {
	return func(o *flowOptions) {
		o.resources = append(o.resources, rs...)
	}
}

// WithSteps appends initial steps.
func WithSteps(steps ...Step) Option {
	return func(o *flowOptions) {
		o.steps = append(o.steps, steps...)
	}
}

// NewFlow creates a flow. Initial resources and steps given as options are
// stored as-is, without validation: a flow as received from a service may
// be inconsistent, and Validate or Execute reports the first violation.
func NewFlow(id, intent string, opts ...Option) *Flow {
	var o flowOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.metadata == nil {
		o.metadata = make(map[string]Value)
	}
	return &Flow{
		id:       id,
		intent:   intent,
		metadata: o.metadata,
		g:        graph.FromRecord(o.resources, o.steps),
		state:    StateIdle,
	}
}

// ID returns the flow id.
func (f *Flow) ID() string {
	return f.id
}

// Intent returns the natural-language intent the flow was produced for.
func (f *Flow) Intent() string {
	return f.intent
}

// Metadata returns a copy of the flow metadata.
func (f *Flow) Metadata() map[string]Value {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.metadata)
}

// Resources returns a copy of the resources in insertion order.
func (f *Flow) Resources() []Resource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.g.Resources()
}

// Steps returns a copy of the steps in insertion order.
func (f *Flow) Steps() []Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.g.Steps()
}

// Resource returns the resource with the given id.
func (f *Flow) Resource(id string) (Resource, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.g.Resource(id)
}

// Step returns a copy of the step with the given id.
func (f *Flow) Step(id string) (Step, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.g.Step(id)
}

// State returns the state of the latest execution, StateIdle if the flow
// was never executed.
func (f *Flow) State() ExecutionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// mutate runs fn under the lock unless an execution is in progress.
func (f *Flow) mutate(fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return fmt.Errorf("flow %q: %w", f.id, ErrFlowBusy)
	}
	return fn()
}

// AddResource appends r. It fails with ErrDuplicateID when a resource with
// the same id exists.
func (f *Flow) AddResource(r Resource) error {
	return f.mutate(func() error { return f.g.AddResource(r) })
}

// ReplaceResource replaces the resource with the same id as r, keeping its
// position. Steps referencing it are untouched.
func (f *Flow) ReplaceResource(r Resource) error {
	return f.mutate(func() error { return f.g.ReplaceResource(r) })
}

// RemoveResource removes the resource and every step acting on it, and
// returns the ids of the removed steps. Dependencies other steps hold on
// the removed steps are left dangling for the validator to report.
// Removing an unknown id is a no-op.
func (f *Flow) RemoveResource(id string) ([]string, error) {
	var removed []string
	err := f.mutate(func() error {
		removed = f.g.RemoveResource(id)
		return nil
	})
	return removed, err
}

// AddStep appends s after checking that its id is new, its resource exists
// and every dependency names an existing step. The graph is unchanged on
// error.
func (f *Flow) AddStep(s Step) error {
	return f.mutate(func() error { return f.g.AddStep(s) })
}

// RemoveStep removes the step and strips its id from every other step's
// dependencies. It reports whether the step existed.
func (f *Flow) RemoveStep(id string) (bool, error) {
	var ok bool
	err := f.mutate(func() error {
		ok = f.g.RemoveStep(id)
		return nil
	})
	return ok, err
}

// UpdateMetadata sets key to value.
func (f *Flow) UpdateMetadata(key string, value Value) error {
	return f.mutate(func() error {
		f.metadata[key] = value
		return nil
	})
}

// Validate checks every structural invariant and returns the first
// violation: duplicate ids, then dangling references, then cycles.
func (f *Flow) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.g.Validate()
}

// ExecuteOptions configures one execution.
type ExecuteOptions struct {
	// Runner performs step actions. Defaults to EchoRunner.
	Runner StepRunner

	// Observer receives lifecycle callbacks. Defaults to NoopObserver.
	Observer Observer

	// MaxParallel bounds how many steps of a wave run at once. Zero or
	// negative means unbounded.
	MaxParallel int
}

// Execute validates the flow and runs it wave by wave: every step whose
// dependencies have completed runs concurrently, and the next wave starts
// only after the whole current wave has returned. The first step failure
// stops the execution once its wave has settled.
//
// Execute never panics; failures are reported in the result with a single
// proof line and Err set. A second Execute while one is in progress fails
// with ErrFlowBusy without touching the running one.
func (f *Flow) Execute(ctx context.Context, opts ExecuteOptions) ExecutionResult {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		err := fmt.Errorf("flow %q: %w", f.id, ErrFlowBusy)
		return ExecutionResult{
			Success: false,
			Proofs:  []string{fmt.Sprintf("Flow execution failed: %v", err)},
			Err:     err,
		}
	}
	f.running = true
	f.state = StateIdle
	snapshot := f.g.Clone()
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
	}()

	exec := engine.New(engine.Config{
		Runner:        opts.Runner,
		Observer:      opts.Observer,
		MaxParallel:   opts.MaxParallel,
		OnStateChange: f.setState,
	})
	return exec.Execute(ctx, f.id, snapshot)
}

func (f *Flow) setState(s ExecutionState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Serialize returns a deep copy of the flow as a record.
func (f *Flow) Serialize() FlowRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FlowRecord{
		ID:        f.id,
		Intent:    f.intent,
		Metadata:  maps.Clone(f.metadata),
		Resources: f.g.Resources(),
		Steps:     f.g.Steps(),
	}.Clone()
}

// Deserialize rebuilds a flow from a record. The record must carry an id
// and an intent; missing metadata, resources and steps default to empty.
// Like NewFlow it does not validate the graph.
func Deserialize(rec FlowRecord) (*Flow, error) {
	if rec.ID == "" {
		return nil, &api.MalformedError{Field: "id", Msg: "missing"}
	}
	if rec.Intent == "" {
		return nil, &api.MalformedError{Field: "intent", Msg: "missing"}
	}
	rec = rec.Clone()
	return NewFlow(rec.ID, rec.Intent,
		WithMetadata(rec.Metadata),
		WithResources(rec.Resources...),
		WithSteps(rec.Steps...),
	), nil
}
