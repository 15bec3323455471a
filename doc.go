// Package deepflow models, validates and executes flows: directed acyclic
// graphs of steps acting on named resources, typically produced from a
// natural-language intent by an external planning service.
//
// # Core Concepts
//
//  1. Flow: a mutable graph of resources and steps with an intent and
//     free-form metadata. Mutations keep the graph consistent one edit at a
//     time; Validate checks it as a whole.
//  2. StepRunner: the pluggable capability that performs a step's action.
//     EchoRunner is the default; ResourceRouter, RetryRunner and
//     TimeoutRunner compose runners.
//  3. Execute: validates the flow once and runs it in waves. All steps whose
//     dependencies completed run concurrently; the next wave starts after
//     the whole current wave returned.
//  4. FlowRecord: the lossless serialized form, readable from JSON, YAML or
//     HCL documents and storable in SQLite, PostgreSQL, Redis or MongoDB.
//  5. LocalRunner and WorkerBundle: process-local asynchronous execution on
//     top of a task queue and a flow store.
//
// # Validation
//
// Validate reports the first violation in a fixed order: duplicate
// resource ids, duplicate step ids, steps referencing unknown resources,
// dependencies on unknown steps, and finally circular dependencies with a
// witness path such as "s2 -> s3 -> s2".
//
// # Execution results
//
// Execute never panics. On success the result holds one StepResult per
// step and one proof line per step ("Step <id> executed successfully"). On
// failure Data is nil and Proofs holds a single "Flow execution failed: ..."
// line; Err carries the typed error, which matches one of the Err* values
// with errors.Is.
//
// # Concurrency
//
// All Flow methods are safe for concurrent use. While an execution is in
// progress the flow rejects mutations and further executions with
// ErrFlowBusy; the execution itself works on a snapshot.
//
// # Example
//
//	flow := deepflow.NewBuilder("summarize quarterly sales").
//	    Resource("db", "postgres", "aws").
//	    Resource("llm", "model", "local").
//	    Step("load", "db", "SELECT * FROM sales", "rows").
//	    Step("report", "llm", "summarize", "report", "load").
//	    MustBuild()
//
//	res := flow.Execute(ctx, deepflow.ExecuteOptions{
//	    Runner:   myRunner,
//	    Observer: deepflow.NewLoggingObserver(slog.Default()),
//	})
package deepflow
