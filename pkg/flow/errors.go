package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrRunTimeout is the failure cause recorded when a run exceeds its
	// wall-clock budget.
	ErrRunTimeout = errors.New("run timed out")

	// ErrRunNotFound is returned when a run ID is unknown.
	ErrRunNotFound = errors.New("run not found")

	// ErrWorkflowNotFound is returned when a workflow name is not registered.
	ErrWorkflowNotFound = errors.New("workflow not found")
)

// ValidationError reports a missing required start argument. It is returned
// by Engine.Start before any run state has been allocated.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required argument: %s", e.Field)
}

// IsValidationError returns the offending field name if err is a
// ValidationError.
func IsValidationError(err error) (string, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Field, true
	}
	return "", false
}

// StepError records a step handler failure. It aborts the run and becomes the
// run's failure cause.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// InjectionError reports a Respond call made while the run was not waiting
// for input. The run is left unchanged.
type InjectionError struct {
	RunID  string
	Status Status
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("run %s is not waiting for input (status %s)", e.RunID, e.Status)
}

// IsInjectionError reports whether err is an InjectionError.
func IsInjectionError(err error) bool {
	var i *InjectionError
	return errors.As(err, &i)
}
