package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/deepflow/internal/graph"
	"github.com/petrijr/deepflow/pkg/api"
)

// recordingRunner identifies steps by their query and records invocations.
type recordingRunner struct {
	mu       sync.Mutex
	started  map[string]time.Time
	finished map[string]time.Time
	calls    map[string]int

	running    atomic.Int32
	maxRunning atomic.Int32

	delay func(query string) time.Duration
	fail  func(query string) error
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{
		started:  make(map[string]time.Time),
		finished: make(map[string]time.Time),
		calls:    make(map[string]int),
	}
}

func (r *recordingRunner) Invoke(ctx context.Context, a api.Action) (api.StepOutput, error) {
	n := r.running.Add(1)
	for {
		cur := r.maxRunning.Load()
		if n <= cur || r.maxRunning.CompareAndSwap(cur, n) {
			break
		}
	}
	defer r.running.Add(-1)

	r.mu.Lock()
	r.started[a.Query] = time.Now()
	r.calls[a.Query]++
	r.mu.Unlock()

	if r.delay != nil {
		time.Sleep(r.delay(a.Query))
	}

	r.mu.Lock()
	r.finished[a.Query] = time.Now()
	r.mu.Unlock()

	if r.fail != nil {
		if err := r.fail(a.Query); err != nil {
			return api.Null(), err
		}
	}
	return api.String("out-" + a.Query), nil
}

func (r *recordingRunner) totalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

// mkStep uses the step id as query so runners can tell steps apart.
func mkStep(id, resource string, deps ...string) api.Step {
	return api.Step{ID: id, Dependencies: deps, Action: api.Action{Resource: resource, Query: id, Output: "o-" + id}}
}

func mkGraph(t *testing.T, steps ...api.Step) *graph.Graph {
	t.Helper()
	return graph.FromRecord([]api.Resource{{ID: "db", Type: "database", Provider: "x"}}, steps)
}

func sortedWaves(res api.ExecutionResult) [][]string {
	waves := res.Waves()
	for _, w := range waves {
		sort.Strings(w)
	}
	return waves
}

func TestExecute_SingleStep(t *testing.T) {
	g := mkGraph(t, api.Step{ID: "s1", Action: api.Action{Resource: "db", Query: "Q1", Output: "o1"}})

	res := New(Config{}).Execute(context.Background(), "f1", g)

	require.True(t, res.Success, res.Proofs)
	require.NoError(t, res.Err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "s1", res.Data[0].StepID)
	assert.Equal(t, 0, res.Data[0].Wave)
	query, _ := res.Data[0].Result.Get("query")
	assert.Equal(t, api.String("Q1"), query)
	assert.Equal(t, []string{"Step s1 executed successfully"}, res.Proofs)
}

func TestExecute_EmptyGraph(t *testing.T) {
	res := New(Config{}).Execute(context.Background(), "f1", graph.New())
	require.True(t, res.Success)
	assert.Empty(t, res.Data)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Proofs)
}

func TestExecute_DiamondWaves(t *testing.T) {
	g := mkGraph(t,
		mkStep("d", "db", "b", "c"),
		mkStep("b", "db", "a"),
		mkStep("c", "db", "a"),
		mkStep("a", "db"),
	)
	runner := newRecordingRunner()

	res := New(Config{Runner: runner}).Execute(context.Background(), "f1", g)

	require.True(t, res.Success, res.Proofs)
	assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, sortedWaves(res))
	assert.Len(t, res.Proofs, 4)

	// A step never starts before every dependency finished.
	for _, s := range g.Steps() {
		for _, dep := range s.Dependencies {
			assert.False(t, runner.started[s.ID].Before(runner.finished[dep]),
				"%s started before dependency %s finished", s.ID, dep)
		}
	}
}

func TestExecute_WaveWaitsForWholePreviousWave(t *testing.T) {
	// c depends only on a, but b is in a's wave and is slow: c must wait.
	g := mkGraph(t,
		mkStep("a", "db"),
		mkStep("b", "db"),
		mkStep("c", "db", "a"),
	)
	runner := newRecordingRunner()
	runner.delay = func(q string) time.Duration {
		if q == "b" {
			return 30 * time.Millisecond
		}
		return 0
	}

	res := New(Config{Runner: runner}).Execute(context.Background(), "f1", g)

	require.True(t, res.Success, res.Proofs)
	assert.False(t, runner.started["c"].Before(runner.finished["b"]))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, sortedWaves(res))
}

func TestExecute_WaveRunsConcurrently(t *testing.T) {
	const width = 4
	var steps []api.Step
	for i := 0; i < width; i++ {
		steps = append(steps, mkStep(fmt.Sprintf("s%d", i), "db"))
	}
	g := mkGraph(t, steps...)

	var arrived sync.WaitGroup
	arrived.Add(width)
	release := make(chan struct{})
	go func() {
		arrived.Wait()
		close(release)
	}()

	runner := api.RunnerFunc(func(ctx context.Context, a api.Action) (api.StepOutput, error) {
		arrived.Done()
		select {
		case <-release:
			return api.Null(), nil
		case <-time.After(2 * time.Second):
			return api.Null(), errors.New("steps of one wave did not run concurrently")
		}
	})

	res := New(Config{Runner: runner}).Execute(context.Background(), "f1", g)
	require.True(t, res.Success, res.Proofs)
}

func TestExecute_MaxParallel(t *testing.T) {
	var steps []api.Step
	for i := 0; i < 6; i++ {
		steps = append(steps, mkStep(fmt.Sprintf("s%d", i), "db"))
	}
	runner := newRecordingRunner()
	runner.delay = func(string) time.Duration { return 5 * time.Millisecond }

	res := New(Config{Runner: runner, MaxParallel: 2}).Execute(context.Background(), "f1", mkGraph(t, steps...))

	require.True(t, res.Success, res.Proofs)
	assert.LessOrEqual(t, runner.maxRunning.Load(), int32(2))
	assert.Equal(t, 6, runner.totalCalls())
}

func TestExecute_RunnerCalledOncePerStep(t *testing.T) {
	g := mkGraph(t,
		mkStep("a", "db"),
		mkStep("b", "db", "a"),
		mkStep("c", "db", "a"),
		mkStep("d", "db", "b", "c"),
	)
	runner := newRecordingRunner()

	res := New(Config{Runner: runner}).Execute(context.Background(), "f1", g)

	require.True(t, res.Success)
	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, 1, runner.calls[id], "step %s", id)
	}
}

func TestExecute_CycleNeverInvokesRunner(t *testing.T) {
	// s1 has no deps, s2 <-> s3.
	g := mkGraph(t,
		mkStep("s1", "db"),
		mkStep("s2", "db", "s1", "s3"),
		mkStep("s3", "db", "s2"),
	)
	runner := newRecordingRunner()

	res := New(Config{Runner: runner}).Execute(context.Background(), "f1", g)

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, api.ErrCircularDependency)
	assert.Nil(t, res.Data)
	require.Len(t, res.Proofs, 1)
	assert.Contains(t, res.Proofs[0], "Flow execution failed: circular dependency")
	assert.Equal(t, 0, runner.totalCalls())
}

func TestExecute_ValidationFailures(t *testing.T) {
	cases := []struct {
		name    string
		g       *graph.Graph
		wantErr error
	}{
		{"duplicate step", mkGraph(t, mkStep("a", "db"), mkStep("a", "db")), api.ErrDuplicateID},
		{"missing resource", mkGraph(t, mkStep("a", "nope")), api.ErrInvalidReference},
		{"missing dependency", mkGraph(t, mkStep("a", "db", "ghost")), api.ErrInvalidReference},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := newRecordingRunner()
			res := New(Config{Runner: runner}).Execute(context.Background(), "f1", tc.g)
			require.False(t, res.Success)
			require.ErrorIs(t, res.Err, tc.wantErr)
			assert.Len(t, res.Proofs, 1)
			assert.Equal(t, 0, runner.totalCalls())
		})
	}
}

func TestExecute_FailureWaitsForWaveAndStops(t *testing.T) {
	boom := errors.New("boom")
	g := mkGraph(t,
		mkStep("a", "db"),
		mkStep("b", "db"),
		mkStep("c", "db"),
		mkStep("next", "db", "a", "b", "c"),
	)
	runner := newRecordingRunner()
	runner.delay = func(q string) time.Duration {
		if q == "b" || q == "c" {
			return 30 * time.Millisecond
		}
		return 0
	}
	runner.fail = func(q string) error {
		if q == "a" {
			return boom
		}
		return nil
	}

	res := New(Config{Runner: runner}).Execute(context.Background(), "f1", g)

	require.False(t, res.Success)
	assert.Nil(t, res.Data)
	require.Len(t, res.Proofs, 1)
	require.ErrorIs(t, res.Err, api.ErrRunnerFailure)
	require.ErrorIs(t, res.Err, boom)

	stepID, ok := api.IsRunnerFailure(res.Err)
	require.True(t, ok)
	assert.Equal(t, "a", stepID)

	// The slow siblings settled before Execute returned.
	runner.mu.Lock()
	_, bDone := runner.finished["b"]
	_, cDone := runner.finished["c"]
	runner.mu.Unlock()
	assert.True(t, bDone)
	assert.True(t, cDone)

	// No further wave was dispatched.
	assert.Zero(t, runner.calls["next"])
}

func TestExecute_RunnerPanicIsRecovered(t *testing.T) {
	g := mkGraph(t, mkStep("a", "db"))
	runner := api.RunnerFunc(func(ctx context.Context, a api.Action) (api.StepOutput, error) {
		panic("kaboom")
	})

	res := New(Config{Runner: runner}).Execute(context.Background(), "f1", g)

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, api.ErrRunnerFailure)
	assert.Contains(t, res.Proofs[0], "kaboom")
}

func TestExecute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := newRecordingRunner()

	res := New(Config{Runner: runner}).Execute(ctx, "f1", mkGraph(t, mkStep("a", "db")))

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 0, runner.totalCalls())
}

func TestExecute_CancelBetweenWaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := api.RunnerFunc(func(_ context.Context, a api.Action) (api.StepOutput, error) {
		if a.Query == "a" {
			cancel()
		}
		return api.Null(), nil
	})

	res := New(Config{Runner: runner}).Execute(ctx, "f1", mkGraph(t, mkStep("a", "db"), mkStep("b", "db", "a")))

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, context.Canceled)
	for _, kind := range []error{
		api.ErrDuplicateID, api.ErrInvalidReference, api.ErrCircularDependency,
		api.ErrMalformedInput, api.ErrRunnerFailure, api.ErrFlowBusy,
	} {
		assert.NotErrorIs(t, res.Err, kind)
	}
}

func TestDrive_StallIsCircularDependency(t *testing.T) {
	// Bypass validation to reach the defensive stall check.
	g := mkGraph(t, mkStep("a", "db"), mkStep("b", "db", "c"), mkStep("c", "db", "b"))
	runner := newRecordingRunner()

	res := New(Config{Runner: runner}).drive(context.Background(), "f1", g)

	require.False(t, res.Success)
	var cyc *api.CycleError
	require.ErrorAs(t, res.Err, &cyc)
	assert.True(t, cyc.Stalled)
	assert.Equal(t, []string{"b", "c"}, cyc.Path)
	assert.Equal(t, 1, runner.totalCalls(), "the first wave ran before the stall")
}

func TestExecute_StateTransitions(t *testing.T) {
	var (
		mu     sync.Mutex
		states []api.ExecutionState
	)
	track := func(s api.ExecutionState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	}

	New(Config{OnStateChange: track}).Execute(context.Background(), "f1", mkGraph(t, mkStep("a", "db")))
	assert.Equal(t, []api.ExecutionState{api.StateValidating, api.StateRunning, api.StateSucceeded}, states)

	states = nil
	New(Config{OnStateChange: track}).Execute(context.Background(), "f1", mkGraph(t, mkStep("a", "db", "a")))
	assert.Equal(t, []api.ExecutionState{api.StateValidating, api.StateFailed}, states)
}
