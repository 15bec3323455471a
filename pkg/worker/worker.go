package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/petrijr/deepflow/internal/engine"
	"github.com/petrijr/deepflow/internal/graph"
	"github.com/petrijr/deepflow/internal/persistence"
	"github.com/petrijr/deepflow/internal/taskqueue"
	"github.com/petrijr/deepflow/pkg/api"
)

// Config controls worker behaviour.
type Config struct {
	// Flows is where tasks look up the flow records they execute. Required.
	Flows persistence.FlowStore

	// Events, if set, receives the execution history of every task.
	Events persistence.EventStore

	// Runner performs step actions. Defaults to api.EchoRunner.
	Runner api.StepRunner

	// Observer receives executor callbacks in addition to the history
	// observer. Defaults to a LoggingObserver on Logger.
	Observer api.Observer

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// MaxAttempts is the number of times a task whose execution failed in
	// a step runner is tried before it is dropped. Values <= 1 disable
	// re-enqueueing. Validation failures are never retried.
	MaxAttempts int

	// MaxParallel is the default wave concurrency for tasks that do not
	// set their own.
	MaxParallel int
}

const (
	// requeueTimeout bounds handing a task back once the worker context is
	// already done.
	requeueTimeout = 5 * time.Second

	minBackoff = 50 * time.Millisecond
	maxBackoff = 2 * time.Second
)

// Outcome describes one processed task.
type Outcome struct {
	Task   taskqueue.Task
	Result api.ExecutionResult
	// Requeued is true when the task was put back on the queue, either for
	// a retry or because the worker stopped mid-execution.
	Requeued bool
}

// Worker pulls tasks from a Queue, loads the named flow record and
// executes it.
type Worker struct {
	queue taskqueue.Queue
	cfg   Config
	log   *slog.Logger
}

// New creates a new Worker.
func New(queue taskqueue.Queue, cfg Config) *Worker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = api.EchoRunner
	}
	if cfg.Observer == nil {
		cfg.Observer = api.NewLoggingObserver(cfg.Logger)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Worker{
		queue: queue,
		cfg:   cfg,
		log:   cfg.Logger.With("component", "worker"),
	}
}

// Enqueue asks a worker to execute the stored flow flowID and returns the
// task id. maxParallel <= 0 uses the worker default. The record is not
// looked up until the task is processed.
func (w *Worker) Enqueue(ctx context.Context, flowID string, maxParallel int) (string, error) {
	if flowID == "" {
		return "", &api.MalformedError{Field: "flowID", Msg: "missing"}
	}
	t := taskqueue.Task{
		ID:          uuid.NewString(),
		FlowID:      flowID,
		MaxParallel: maxParallel,
	}
	if err := w.queue.Enqueue(ctx, t); err != nil {
		return "", fmt.Errorf("enqueue flow %q: %w", flowID, err)
	}
	return t.ID, nil
}

// ProcessOne pulls a single task from the queue and executes it.
//
// A returned error means no task was processed: the context ended, the
// queue failed, or the flow record could not be loaded. An execution that
// failed is not an error here; inspect Outcome.Result.
//
// A task interrupted by ctx is handed back to the queue unchanged, without
// counting an attempt, so another worker can pick it up.
func (w *Worker) ProcessOne(ctx context.Context) (*Outcome, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return nil, err
	}

	log := w.log.With("task_id", task.ID, "flow_id", task.FlowID, "attempt", task.Attempts+1)

	rec, err := w.cfg.Flows.GetFlow(ctx, task.FlowID)
	if err != nil {
		if ctx.Err() != nil {
			w.handBack(ctx, *task, log)
		} else {
			log.Error("load flow failed", "error", err)
		}
		return nil, fmt.Errorf("load flow %q: %w", task.FlowID, err)
	}

	res := w.execute(ctx, *task, rec)
	out := &Outcome{Task: *task, Result: res}
	if res.Success {
		log.Info("task completed", "steps", len(res.Data))
		return out, nil
	}

	if ctx.Err() != nil {
		out.Requeued = w.handBack(ctx, *task, log)
		return out, nil
	}

	if w.shouldRetry(*task, res.Err) {
		next := *task
		next.Attempts++
		next.EnqueuedAt = time.Time{}
		if err := w.queue.Enqueue(ctx, next); err != nil {
			log.Error("requeue failed", "error", err)
		} else {
			out.Requeued = true
		}
	}
	log.Warn("task failed", "error", res.Err, "requeued", out.Requeued)
	return out, nil
}

// handBack re-enqueues task as it was dequeued. ctx is usually done here, so
// the enqueue runs detached from its cancellation.
func (w *Worker) handBack(ctx context.Context, task taskqueue.Task, log *slog.Logger) bool {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()

	if err := w.queue.Enqueue(rctx, task); err != nil {
		log.Error("task lost on shutdown", "error", err)
		return false
	}
	log.Info("task interrupted, handed back", "cause", context.Cause(ctx))
	return true
}

func (w *Worker) execute(ctx context.Context, task taskqueue.Task, rec api.FlowRecord) api.ExecutionResult {
	obs := w.cfg.Observer
	if w.cfg.Events != nil {
		obs = api.NewCompositeObserver(obs, api.NewHistoryObserver(w.cfg.Events, w.cfg.Logger))
	}
	maxParallel := task.MaxParallel
	if maxParallel <= 0 {
		maxParallel = w.cfg.MaxParallel
	}

	exec := engine.New(engine.Config{
		Runner:      w.cfg.Runner,
		Observer:    obs,
		MaxParallel: maxParallel,
	})
	return exec.Execute(ctx, rec.ID, graph.FromRecord(rec.Resources, rec.Steps))
}

func (w *Worker) shouldRetry(task taskqueue.Task, err error) bool {
	if task.Attempts+1 >= w.cfg.MaxAttempts {
		return false
	}
	_, runnerFailed := api.IsRunnerFailure(err)
	return runnerFailed
}

// Run processes tasks with the given number of concurrent loops until ctx
// is cancelled. Per-task errors are logged and do not stop the loops; a
// loop that keeps failing waits between attempts, doubling the delay up to
// maxBackoff. Run returns nil on cancellation.
func (w *Worker) Run(ctx context.Context, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	w.log.Info("worker started", "concurrency", concurrency)

	var eg errgroup.Group
	for i := 0; i < concurrency; i++ {
		eg.Go(func() error {
			backoff := minBackoff
			for {
				_, err := w.ProcessOne(ctx)
				if err == nil {
					backoff = minBackoff
					continue
				}
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return nil
				}
				w.log.Error("process task failed", "error", err, "retry_in", backoff)

				t := time.NewTimer(backoff)
				select {
				case <-ctx.Done():
					t.Stop()
					return nil
				case <-t.C:
				}
				backoff = min(backoff*2, maxBackoff)
			}
		})
	}
	err := eg.Wait()
	w.log.Info("worker stopped")
	return err
}
