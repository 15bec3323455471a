package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/petrijr/deepflow/internal/graph"
	"github.com/petrijr/deepflow/pkg/api"
)

// Config describes how to construct an Executor.
type Config struct {
	// Runner performs step actions. Defaults to api.EchoRunner.
	Runner api.StepRunner

	// Observer receives lifecycle callbacks. Defaults to api.NoopObserver.
	Observer api.Observer

	// MaxParallel bounds the number of steps of one wave running at the
	// same time. Zero or negative means one goroutine per ready step.
	MaxParallel int

	// OnStateChange, if set, is called on every state machine transition.
	OnStateChange func(api.ExecutionState)
}

// Executor drives a graph through the Idle -> Validating -> Running ->
// {Succeeded, Failed} state machine, one wave at a time.
type Executor struct {
	runner      api.StepRunner
	observer    api.Observer
	maxParallel int
	onState     func(api.ExecutionState)
}

// New creates a new Executor using the given configuration.
func New(cfg Config) *Executor {
	runner := cfg.Runner
	if runner == nil {
		runner = api.EchoRunner
	}
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	onState := cfg.OnStateChange
	if onState == nil {
		onState = func(api.ExecutionState) {}
	}
	return &Executor{
		runner:      runner,
		observer:    obs,
		maxParallel: cfg.MaxParallel,
		onState:     onState,
	}
}

// Execute validates g once and then runs it wave by wave. It never panics
// and never returns a nil-valued result: every failure is reported as an
// ExecutionResult with Success false and a single proof line.
//
// g must not be mutated while Execute runs.
func (e *Executor) Execute(ctx context.Context, flowID string, g *graph.Graph) api.ExecutionResult {
	e.observer.OnFlowStart(ctx, flowID)

	e.onState(api.StateValidating)
	if err := g.Validate(); err != nil {
		return e.fail(ctx, flowID, err)
	}

	e.onState(api.StateRunning)
	return e.drive(ctx, flowID, g)
}

// drive runs the wave loop on an already validated graph.
func (e *Executor) drive(ctx context.Context, flowID string, g *graph.Graph) api.ExecutionResult {
	executed := make(map[string]bool, g.NumSteps())
	var (
		data   []api.StepResult
		proofs []string
	)

	for wave := 0; len(executed) < g.NumSteps(); wave++ {
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, flowID, err)
		}

		frontier := g.Frontier(executed)
		if len(frontier) == 0 {
			// Unreachable after a successful validation unless the graph
			// was changed underneath us.
			return e.fail(ctx, flowID, &api.CycleError{Path: g.Pending(executed), Stalled: true})
		}

		results, err := e.runWave(ctx, flowID, wave, frontier)
		if err != nil {
			return e.fail(ctx, flowID, err)
		}

		for _, r := range results {
			executed[r.StepID] = true
			data = append(data, r)
			proofs = append(proofs, fmt.Sprintf("Step %s executed successfully", r.StepID))
		}
	}

	res := api.ExecutionResult{
		Success: true,
		Data:    data,
		Proofs:  proofs,
	}
	if res.Data == nil {
		res.Data = []api.StepResult{}
		res.Proofs = []string{}
	}
	e.onState(api.StateSucceeded)
	e.observer.OnFlowSucceeded(ctx, flowID, res)
	return res
}

// runWave dispatches every step of the frontier concurrently and waits for
// all of them, even after one failed. Results are in completion order.
func (e *Executor) runWave(ctx context.Context, flowID string, wave int, frontier []api.Step) ([]api.StepResult, error) {
	ids := make([]string, len(frontier))
	for i, s := range frontier {
		ids[i] = s.ID
	}
	e.observer.OnWaveStart(ctx, flowID, wave, ids)

	var (
		eg      errgroup.Group
		mu      sync.Mutex
		results = make([]api.StepResult, 0, len(frontier))
	)
	if e.maxParallel > 0 {
		eg.SetLimit(e.maxParallel)
	}

	for _, s := range frontier {
		s := s // per-iteration copy (go 1.21 loop semantics)
		eg.Go(func() error {
			out, err := e.invoke(ctx, flowID, wave, s)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, api.StepResult{StepID: s.ID, Wave: wave, Result: out})
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// invoke calls the runner for one step, turning errors and panics into a
// RunnerError.
func (e *Executor) invoke(ctx context.Context, flowID string, wave int, s api.Step) (out api.StepOutput, err error) {
	start := time.Now()
	e.observer.OnStepStart(ctx, flowID, s.ID, wave)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			out = api.Null()
			err = &api.RunnerError{StepID: s.ID, Resource: s.Action.Resource, Err: err}
		}
		e.observer.OnStepCompleted(ctx, flowID, s.ID, wave, err, time.Since(start))
	}()

	return e.runner.Invoke(ctx, s.Action)
}

func (e *Executor) fail(ctx context.Context, flowID string, err error) api.ExecutionResult {
	e.onState(api.StateFailed)
	e.observer.OnFlowFailed(ctx, flowID, err)
	return api.ExecutionResult{
		Success: false,
		Data:    nil,
		Proofs:  []string{fmt.Sprintf("Flow execution failed: %v", err)},
		Err:     err,
	}
}
