package flow

import (
	"context"
	"time"
)

// Status represents the lifecycle state of a run.
type Status string

const (
	StatusRunning      Status = "RUNNING"
	StatusWaitingInput Status = "WAITING_INPUT"
	StatusCompleted    Status = "COMPLETED"
	StatusFailed       Status = "FAILED"
	StatusTimedOut     Status = "TIMED_OUT"
)

// Terminal reports whether s is one of the terminal statuses.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// Run is the persisted record of one workflow execution.
type Run struct {
	ID           string
	WorkflowName string
	Status       Status
	StartedAt    time.Time

	// Result holds the final artifact once Status is COMPLETED.
	Result any

	// Err records the failure cause once Status is FAILED or TIMED_OUT.
	Err error
}

// RunListOptions controls how runs are listed. Zero values mean "no filter".
type RunListOptions struct {
	WorkflowName string
	Status       Status
}

// Handle is the caller-facing side of a started run.
type Handle interface {
	// RunID returns the identity of the run.
	RunID() string

	// Events returns the run's outward event sequence: every input_required
	// event plus the final stop event, in order. The channel is closed when
	// the run reaches a terminal status, including timeout, so consumers
	// never block past the run's deadline.
	Events() <-chan Event

	// Respond injects a human_response event into the run. It may be called
	// from any goroutine but only while the run is WAITING_INPUT; otherwise
	// it fails synchronously with an InjectionError and changes nothing.
	Respond(response string) error

	// Result blocks until the run reaches a terminal status and returns the
	// final artifact, or the recorded failure for FAILED and TIMED_OUT runs.
	// The passed context only bounds the wait itself.
	Result(ctx context.Context) (any, error)

	// Status returns the run's current status.
	Status() Status
}

// Engine registers workflow definitions and starts runs.
type Engine interface {
	// RegisterWorkflow validates def and adds it to the registry. The
	// registry is immutable while runs execute; register everything up front.
	RegisterWorkflow(def WorkflowDefinition) error

	// Start validates args against the definition's RequiredArgs, creates a
	// run with a fresh context, enqueues the start event and returns without
	// blocking. A missing argument fails with a ValidationError before any
	// run state exists.
	Start(ctx context.Context, name string, args map[string]any) (Handle, error)

	// GetRun looks up a run record by ID.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns run records matching the given options.
	ListRuns(ctx context.Context, opts RunListOptions) ([]*Run, error)
}
