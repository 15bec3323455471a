package api

import (
	"context"
	"maps"
	"slices"
)

// Resource is a named, typed external target a step operates against.
type Resource struct {
	ID       string `json:"id" yaml:"id"`
	Type     string `json:"type" yaml:"type"`
	Provider string `json:"provider" yaml:"provider"`
}

// Action describes what a step does against its resource.
type Action struct {
	Resource string `json:"resource" yaml:"resource"`
	Query    string `json:"query" yaml:"query"`
	Output   string `json:"output" yaml:"output"`
}

// Step is one unit of work acting on a resource, gated by dependencies on
// sibling steps. Dependencies reference other steps of the same flow by id.
type Step struct {
	ID           string   `json:"id" yaml:"id"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	Action       Action   `json:"action" yaml:"action"`
}

// Clone returns a copy of s that shares no memory with it.
func (s Step) Clone() Step {
	s.Dependencies = slices.Clone(s.Dependencies)
	if s.Dependencies == nil {
		s.Dependencies = []string{}
	}
	return s
}

// DependsOn reports whether s lists id among its dependencies.
func (s Step) DependsOn(id string) bool {
	return slices.Contains(s.Dependencies, id)
}

// FlowRecord is the structural, serializable form of a flow.
type FlowRecord struct {
	ID        string           `json:"id" yaml:"id"`
	Intent    string           `json:"intent" yaml:"intent"`
	Metadata  map[string]Value `json:"metadata" yaml:"-"`
	Resources []Resource       `json:"resources" yaml:"resources"`
	Steps     []Step           `json:"steps" yaml:"steps"`
}

// Clone returns a deep copy of r. Nil collections become empty ones.
func (r FlowRecord) Clone() FlowRecord {
	out := FlowRecord{
		ID:        r.ID,
		Intent:    r.Intent,
		Metadata:  maps.Clone(r.Metadata),
		Resources: slices.Clone(r.Resources),
		Steps:     make([]Step, 0, len(r.Steps)),
	}
	if out.Metadata == nil {
		out.Metadata = map[string]Value{}
	}
	if out.Resources == nil {
		out.Resources = []Resource{}
	}
	for _, s := range r.Steps {
		out.Steps = append(out.Steps, s.Clone())
	}
	return out
}

// StepOutput is what a StepRunner returns for one step.
type StepOutput = Value

// StepRunner performs the action of a single step. It is the only
// capability the executor consumes from its environment.
//
// Invoke is called at most once per step per execution. Implementations
// are responsible for bounding their own latency: the executor waits for
// every step of a wave to return.
type StepRunner interface {
	Invoke(ctx context.Context, action Action) (StepOutput, error)
}

// RunnerFunc adapts a plain function to the StepRunner interface.
type RunnerFunc func(ctx context.Context, action Action) (StepOutput, error)

// Invoke calls f(ctx, action).
func (f RunnerFunc) Invoke(ctx context.Context, action Action) (StepOutput, error) {
	return f(ctx, action)
}

// EchoRunner returns a description of the action without touching the
// resource. It is the default runner when none is configured.
var EchoRunner StepRunner = RunnerFunc(func(ctx context.Context, action Action) (StepOutput, error) {
	return Map(map[string]Value{
		"resourceId": String(action.Resource),
		"query":    String(action.Query),
		"output":   String(action.Output),
	}), nil
})

// ExecutionState is the state of the executor state machine.
type ExecutionState string

const (
	StateIdle       ExecutionState = "IDLE"
	StateValidating ExecutionState = "VALIDATING"
	StateRunning    ExecutionState = "RUNNING"
	StateSucceeded  ExecutionState = "SUCCEEDED"
	StateFailed     ExecutionState = "FAILED"
)

// Done reports whether s is a terminal state.
func (s ExecutionState) Done() bool {
	return s == StateSucceeded || s == StateFailed
}

// StepResult is the outcome of one completed step.
type StepResult struct {
	StepID string     `json:"stepId"`
	Wave   int        `json:"wave"`
	Result StepOutput `json:"result"`
}

// ExecutionResult is the human-auditable trace of one execution.
//
// On success Data holds one entry per step, grouped by wave and in
// completion order inside a wave, and Proofs holds one line per step.
// On failure Data is nil and Proofs holds a single diagnostic line.
type ExecutionResult struct {
	Success bool         `json:"success"`
	Data    []StepResult `json:"data"`
	Proofs  []string     `json:"proofs"`

	// Err is the error that failed the execution, nil on success.
	Err error `json:"-"`
}

// Waves returns the step ids of Data grouped by wave.
func (r ExecutionResult) Waves() [][]string {
	var out [][]string
	for _, d := range r.Data {
		for len(out) <= d.Wave {
			out = append(out, nil)
		}
		out[d.Wave] = append(out[d.Wave], d.StepID)
	}
	return out
}
