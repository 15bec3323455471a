package deepflow

import (
	"context"
	"database/sql"

	"github.com/petrijr/deepflow/internal/persistence"
	"github.com/petrijr/deepflow/internal/taskqueue"
	workerpkg "github.com/petrijr/deepflow/pkg/worker"
)

// WorkerBundle wires together a flow store, an event store, a durable task
// queue and a Worker that consumes tasks from that queue.
type WorkerBundle struct {
	Flows  FlowStore
	Events EventStore
	Worker *workerpkg.Worker

	// queue is kept unexported; it is primarily useful for internal
	// inspection and tests. The public API focuses on the stores and Worker.
	queue taskqueue.Queue
}

// NewSQLiteBundle constructs stores, queue and worker sharing the same
// SQLite database, so that submitted flows, their history and pending
// executions survive a restart of the process.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:deepflow.db?_pragma=journal_mode(WAL)")
//	bundle, err := deepflow.NewSQLiteBundle(db, worker.Config{MaxAttempts: 3})
//	taskID, err := bundle.Submit(ctx, flow, 0)
//	go bundle.Worker.Run(ctx, 2)
func NewSQLiteBundle(db *sql.DB, cfg workerpkg.Config) (*WorkerBundle, error) {
	flows, err := persistence.NewSQLiteFlowStore(db)
	if err != nil {
		return nil, err
	}
	events, err := persistence.NewSQLiteEventStore(db)
	if err != nil {
		return nil, err
	}
	q, err := taskqueue.NewSQLiteQueue(db)
	if err != nil {
		return nil, err
	}

	cfg.Flows = flows
	cfg.Events = events

	return &WorkerBundle{
		Flows:  flows,
		Events: events,
		Worker: workerpkg.New(q, cfg),
		queue:  q,
	}, nil
}

// Submit stores the flow's current record and enqueues its execution.
func (b *WorkerBundle) Submit(ctx context.Context, f *Flow, maxParallel int) (string, error) {
	if err := Save(ctx, b.Flows, f); err != nil {
		return "", err
	}
	return b.Worker.Enqueue(ctx, f.ID(), maxParallel)
}

// Pending returns the approximate number of queued executions.
func (b *WorkerBundle) Pending() int {
	return b.queue.Len()
}
