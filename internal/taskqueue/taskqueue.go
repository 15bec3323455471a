package taskqueue

import (
	"context"
	"time"
)

// Task asks a worker to load a stored flow and execute it.
type Task struct {
	ID string

	// FlowID names the flow record to load from the flow store.
	FlowID string

	// MaxParallel bounds wave concurrency for this execution; zero means
	// the worker's default.
	MaxParallel int

	// Attempts counts previous executions of this task that failed.
	Attempts int

	EnqueuedAt time.Time
}

// Queue is a simple FIFO async task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next task, blocking until one is available
	// or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}

// stamp fills EnqueuedAt when the caller left it empty.
func stamp(t Task) Task {
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now()
	}
	return t
}
