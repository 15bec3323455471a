// Package worker executes stored flows asynchronously.
//
// A Worker consumes tasks from a taskqueue.Queue. Each task names a flow
// record kept in a persistence.FlowStore; the worker loads the record,
// rebuilds its graph and runs it through the wave executor. Execution
// history can be written to a persistence.EventStore.
//
// Executions that fail in a step runner may be re-enqueued up to
// Config.MaxAttempts times. Flows that fail validation are never retried
// since their structure will not change between attempts.
//
// Queues are process-local: in-memory, or a SQLite file that survives a
// restart of the process.
package worker
