// Package flow defines the public API of the event-driven step orchestrator.
//
// A workflow is an unordered set of steps. Each step declares the event kinds
// it accepts; dispatch is a type-tagged publish/subscribe switch, not a
// pattern-matching engine. An event that matches several steps fans out to
// all of them, an event that matches none is absorbed.
//
// # Events
//
// Events are immutable tagged messages. Four kinds are reserved:
//
//   - start: carries the run arguments, dispatched first in every run
//   - stop: carries the final result and terminates the run
//   - input_required: suspends the run and surfaces the event to the caller
//   - human_response: injected by the caller to resume a suspended run
//
// Everything else is workflow-specific.
//
// # Fan-in
//
// A step that needs a batch of events calls Context.Collect with the multiset
// of kinds it requires. Until the multiset has fully arrived, Collect reports
// incomplete and the handler returns no output; the arrival that completes
// the multiset drains exactly the required instances as one batch.
//
// # Human in the loop
//
// Emitting an input_required event parks the run in WAITING_INPUT and hands
// the event to the run handle's outward sequence. The caller reviews it and
// calls Handle.Respond, which injects a human_response event into the same
// run with all context state intact. The step accepting human_response
// decides whether to stop the run or iterate.
//
// # Runs
//
// Engine.Start validates the required arguments, creates the run and returns
// a Handle without blocking. The handle exposes the outward event sequence,
// the injection operation and the terminal result. Every run is bounded by a
// wall-clock timeout; a run that never produces a stop event is forcibly
// terminated and its awaiters observe ErrRunTimeout rather than hanging.
package flow
