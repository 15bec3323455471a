// Package engine implements the wave scheduler that executes a flow graph.
//
// An execution validates the graph once, then repeatedly computes the
// frontier of steps whose dependencies have all completed, runs that
// frontier concurrently and joins it before computing the next one. The
// first step failure ends the execution after the rest of its wave has
// settled; no further wave is dispatched.
package engine
