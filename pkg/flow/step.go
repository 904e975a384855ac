package flow

import (
	"context"
	"time"
)

// DefaultTimeout is the wall-clock budget applied to runs of workflows that
// do not set their own.
const DefaultTimeout = 10 * time.Minute

// Context is the per-run state a handler may use. It is owned by exactly one
// run and destroyed with it; all methods are safe for concurrent use by the
// step executions of that run.
type Context interface {
	// Set stores a value under key. Writes are last-write-wins; by convention
	// a given key is written by a single step kind and read by the others.
	Set(key string, value any)

	// Get returns the value stored under key.
	Get(key string) (any, bool)

	// Collect appends ev to the calling step's barrier buffer and attempts to
	// drain a batch. required is a multiset of kinds: repeat a kind to demand
	// several instances of it. When every required kind has arrived in the
	// demanded count, Collect removes exactly those instances (in arrival
	// order per kind) and returns them with ok=true. Otherwise it returns
	// (nil, false) and the buffer is left untouched. An empty required set
	// means the count is not yet known and always reports incomplete.
	Collect(ev Event, required []Kind) ([]Event, bool)
}

// HandlerFunc is the body of a step. It receives the triggering event and
// returns zero or more events to dispatch next. Returning no events produces
// nothing further; returning an error aborts the run.
type HandlerFunc func(ctx context.Context, fc Context, ev Event) ([]Event, error)

// StepDefinition binds a named handler to the event kinds it reacts to.
// A step accepting several kinds is triggered by any one occurrence.
type StepDefinition struct {
	Name    string
	Accepts []Kind
	Fn      HandlerFunc
}

// WorkflowDefinition describes a workflow as an unordered set of steps wired
// together purely by the event kinds they accept and emit.
type WorkflowDefinition struct {
	Name string

	// RequiredArgs lists start-argument names that must be present. Start
	// fails with a ValidationError before any run state is allocated when one
	// is missing.
	RequiredArgs []string

	// Timeout is the wall-clock budget per run, measured from the start
	// event. Zero means DefaultTimeout.
	Timeout time.Duration

	Steps []StepDefinition
}

// Repeat returns a multiset of n occurrences of kind, for use with
// Context.Collect.
func Repeat(kind Kind, n int) []Kind {
	if n <= 0 {
		return nil
	}
	ks := make([]Kind, n)
	for i := range ks {
		ks[i] = kind
	}
	return ks
}
