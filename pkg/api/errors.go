package api

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the flow graph and the validator, and
// every step or structural failure of the executor, matches exactly one of
// these through errors.Is. An execution stopped by its context between waves
// reports the context error (context.Canceled or context.DeadlineExceeded)
// and matches none of them.
var (
	// ErrDuplicateID indicates a resource or step id collision.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalidReference indicates a step naming a nonexistent resource or
	// dependency.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrCircularDependency indicates a dependency cycle, or a scheduler
	// stall with unexecuted steps and an empty frontier.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrMalformedInput indicates a record missing mandatory fields.
	ErrMalformedInput = errors.New("malformed input")

	// ErrRunnerFailure indicates that a step's action invocation failed.
	ErrRunnerFailure = errors.New("runner failure")

	// ErrFlowBusy is returned when a flow is mutated or executed while an
	// execution is already in progress.
	ErrFlowBusy = errors.New("flow is executing")
)

// DuplicateIDError names the colliding id.
// Wraps ErrDuplicateID for errors.Is() compatibility.
type DuplicateIDError struct {
	Kind string // "resource" or "step"
	ID   string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s id %q", e.Kind, e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// ReferenceError names the step and the missing resource or dependency.
// Wraps ErrInvalidReference for errors.Is() compatibility.
type ReferenceError struct {
	StepID string
	Kind   string // "resource" or "dependency"
	Target string
}

func (e *ReferenceError) Error() string {
	if e.Kind == "resource" {
		return fmt.Sprintf("resource %q not found for step %q", e.Target, e.StepID)
	}
	return fmt.Sprintf("dependency %q not found for step %q", e.Target, e.StepID)
}

func (e *ReferenceError) Unwrap() error { return ErrInvalidReference }

// CycleError carries a witness for a circular dependency.
// Wraps ErrCircularDependency for errors.Is() compatibility.
//
// When Stalled is false, Path is a closed walk over dependency edges whose
// first and last elements are equal. When Stalled is true the scheduler ran
// out of ready steps and Path lists the steps that never became ready.
type CycleError struct {
	Path    []string
	Stalled bool
}

func (e *CycleError) Error() string {
	if e.Stalled {
		return fmt.Sprintf("circular dependency detected in flow: no runnable steps among [%s]", strings.Join(e.Path, ", "))
	}
	return fmt.Sprintf("circular dependency detected in flow: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCircularDependency }

// MalformedError describes a record that cannot become a flow.
// Wraps ErrMalformedInput for errors.Is() compatibility.
type MalformedError struct {
	Field string
	Msg   string
	Err   error
}

func (e *MalformedError) Error() string {
	msg := ErrMalformedInput.Error()
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedInput, e.Err}
	}
	return []error{ErrMalformedInput}
}

// RunnerError wraps the collaborator error returned for one step.
// It matches both ErrRunnerFailure and the wrapped error.
type RunnerError struct {
	StepID   string
	Resource string
	Err      error
}

func (e *RunnerError) Error() string {
	return fmt.Sprintf("step %q on resource %q failed: %v", e.StepID, e.Resource, e.Err)
}

func (e *RunnerError) Unwrap() []error { return []error{ErrRunnerFailure, e.Err} }

// IsRunnerFailure returns the failing step id if err is a RunnerError.
func IsRunnerFailure(err error) (string, bool) {
	var re *RunnerError
	if errors.As(err, &re) {
		return re.StepID, true
	}
	return "", false
}
