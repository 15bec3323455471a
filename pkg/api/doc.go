// Package api contains the public data model of deepflow: resources, steps,
// flow records, execution results, the error kinds, the StepRunner
// capability consumed by the executor and the Observer hooks it emits.
//
// Most applications use it through the re-exports in the root deepflow
// package.
package api
