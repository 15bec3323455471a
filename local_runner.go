package deepflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/petrijr/deepflow/internal/persistence"
	"github.com/petrijr/deepflow/internal/taskqueue"
	"github.com/petrijr/deepflow/pkg/worker"
)

// LocalRunner bundles an in-memory store, an in-memory task queue and a
// Worker to provide a simple asynchronous runner for development and
// debugging.
//
// Typical usage:
//
//	runner := deepflow.NewLocalRunner(worker.Config{Runner: myRunner})
//	_ = runner.StartWorkers(ctx, 2)
//	taskID, _ := runner.Submit(ctx, flow, 0)
//	...
//	runner.Stop()
//	events, _ := runner.Store.ListEvents(ctx, flow.ID())
type LocalRunner struct {
	// Store holds submitted flows and their execution history.
	Store *persistence.InMemoryStore

	// Queue is the in-memory task queue used by the Worker.
	Queue taskqueue.Queue

	// Worker processes tasks from Queue.
	Worker *worker.Worker

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewLocalRunner constructs a LocalRunner. cfg.Flows and cfg.Events are
// overwritten with the runner's in-memory store.
func NewLocalRunner(cfg worker.Config) *LocalRunner {
	store := persistence.NewInMemoryStore()
	q := taskqueue.NewInMemoryQueue(1024)
	cfg.Flows = store
	cfg.Events = store

	return &LocalRunner{
		Store:  store,
		Queue:  q,
		Worker: worker.New(q, cfg),
	}
}

// Submit stores the flow's current record and enqueues its execution.
// Later changes to f do not affect the queued execution.
func (r *LocalRunner) Submit(ctx context.Context, f *Flow, maxParallel int) (string, error) {
	if err := Save(ctx, r.Store, f); err != nil {
		return "", err
	}
	return r.Worker.Enqueue(ctx, f.ID(), maxParallel)
}

// StartWorkers starts 'concurrency' worker loops that process tasks until
// Stop is called.
//
// If StartWorkers is called more than once without Stop, it returns an error.
func (r *LocalRunner) StartWorkers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("deepflow: LocalRunner already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go func(done chan struct{}) {
		defer close(done)
		if err := r.Worker.Run(ctx, concurrency); err != nil {
			slog.Error("deepflow: local runner stopped", "error", err)
		}
	}(r.done)

	return nil
}

// Stop cancels the worker loops started by StartWorkers and waits for them
// to exit.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, done := r.cancel, r.done
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	<-done
}
