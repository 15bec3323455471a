package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/petrijr/deepflow"
	"github.com/petrijr/deepflow/internal/ctxlog"
	"github.com/petrijr/deepflow/pkg/worker"
)

// DatabaseFlag selects the SQLite database shared by enqueue and worker.
type DatabaseFlag struct {
	DB string `kong:"name='db',default='deepflow.db',env='DEEPFLOW_DB',help='SQLite database holding flows, history and queued executions.'"`
}

func (d DatabaseFlag) open(ctx context.Context, cfg worker.Config) (*deepflow.WorkerBundle, *sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+d.DB+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, nil, err
	}
	cfg.Logger = ctxlog.FromContext(ctx)
	bundle, err := deepflow.NewSQLiteBundle(db, cfg)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("open %s: %w", d.DB, err)
	}
	return bundle, db, nil
}

// EnqueueCmd stores a flow document and queues its execution.
type EnqueueCmd struct {
	DatabaseFlag
	File        string `kong:"arg,type='existingfile',help='Flow document (.json, .yaml, .yml or .hcl).'"`
	MaxParallel int    `kong:"name='max-parallel',default='0',help='Maximum steps running at once within a wave (0 for the worker default).'"`
}

// Run executes the deepflow enqueue command.
func (cmd EnqueueCmd) Run(ctx context.Context) error {
	f, err := deepflow.LoadFile(ctx, cmd.File)
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%s: %w", cmd.File, err)
	}

	bundle, db, err := cmd.open(ctx, worker.Config{})
	if err != nil {
		return err
	}
	defer db.Close()

	taskID, err := bundle.Submit(ctx, f, cmd.MaxParallel)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "queued flow %q as task %s (%d pending)\n", f.ID(), taskID, bundle.Pending())
	return nil
}

// WorkerCmd processes queued executions until interrupted.
type WorkerCmd struct {
	DatabaseFlag
	Concurrency int `kong:"name='concurrency',short='c',default='2',help='Number of concurrent worker loops.'"`
	MaxAttempts int `kong:"name='max-attempts',default='3',help='Attempts per execution when a runner fails.'"`
	MaxParallel int `kong:"name='max-parallel',default='0',help='Default per-wave parallelism (0 for unbounded).'"`
}

// Run executes the deepflow worker command.
func (cmd WorkerCmd) Run(ctx context.Context) error {
	bundle, db, err := cmd.open(ctx, worker.Config{
		MaxAttempts: cmd.MaxAttempts,
		MaxParallel: cmd.MaxParallel,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	ctxlog.FromContext(ctx).Info("worker started", "db", cmd.DB, "concurrency", cmd.Concurrency, "pending", bundle.Pending())
	return bundle.Worker.Run(ctx, cmd.Concurrency)
}
