package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/janngomaa/ai-job-application/pkg/flow"
)

// stepResult carries one step execution's output back to the run's dispatch
// loop.
type stepResult struct {
	step   string
	events []flow.Event
	err    error
}

// runExec owns one run: its context, its dispatch loop and its caller-facing
// handle. The loop goroutine is the single writer of the pending-event queue;
// step handlers execute on their own goroutines and funnel results back over
// a channel, so a slow external call never stalls another run.
type runExec struct {
	eng  *engineImpl
	reg  *registry
	rc   *runContext
	args map[string]any

	mu       sync.Mutex
	run      *flow.Run
	answered bool // current suspension already has its response

	out    chan flow.Event // outward milestones: input_required + stop
	inject chan flow.Event // human responses, at most one outstanding
	done   chan struct{}   // closed once the run is terminal

	result any
	err    error
}

var _ flow.Handle = (*runExec)(nil)

func (r *runExec) RunID() string {
	return r.run.ID
}

func (r *runExec) Events() <-chan flow.Event {
	return r.out
}

func (r *runExec) Status() flow.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run.Status
}

// Respond injects a human_response event. The answered flag, not the channel,
// is the admission gate: suspend resets it and the flip to WAITING_INPUT in
// the same critical section, so each suspension admits exactly one response.
// Checking channel capacity instead would race the dispatch loop, which
// drains inject before it flips the status back to RUNNING; a response landing
// in that window would be accepted with no suspension left to answer and then
// leak into the next one.
func (r *runExec) Respond(response string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.run.Status != flow.StatusWaitingInput || r.answered {
		return &flow.InjectionError{RunID: r.run.ID, Status: r.run.Status}
	}
	r.answered = true
	// Guaranteed not to block: answered was false, so inject is empty.
	r.inject <- flow.NewHumanResponse(response)
	return nil
}

func (r *runExec) Result(ctx context.Context) (any, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// snapshot returns a copy of the run record safe to hand to observers and
// stores while the loop keeps mutating the original.
func (r *runExec) snapshot() *flow.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.run
	return &cp
}

func (r *runExec) setStatus(status flow.Status) {
	r.mu.Lock()
	r.run.Status = status
	r.mu.Unlock()
	_ = r.eng.runs.UpdateRun(r.snapshot())
}

// suspend flips the run into WAITING_INPUT and re-arms injection. Both happen
// under one lock so Respond never sees a suspension that still carries the
// previous answered flag.
func (r *runExec) suspend() {
	r.mu.Lock()
	r.run.Status = flow.StatusWaitingInput
	r.answered = false
	r.mu.Unlock()
	_ = r.eng.runs.UpdateRun(r.snapshot())
}

// loop is the run's dispatch loop. It drains the pending queue, fans each
// event out to every matching step, and blocks on step results, injected
// responses or the deadline. It exits only through finish or fail, both of
// which close done (and, via the deferred close, the outward channel) so no
// consumer outlives the run.
func (r *runExec) loop(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, r.reg.timeout())
	defer cancel()
	defer close(r.out)

	results := make(chan stepResult)
	inflight := 0
	pending := []flow.Event{flow.NewStart(r.args)}

	for {
		for len(pending) > 0 {
			ev := pending[0]
			pending = pending[1:]

			switch ev.Kind() {
			case flow.KindStop:
				r.drain(ctx, results, inflight)
				r.finish(ctx, ev)
				return

			case flow.KindInputRequired:
				if !r.awaitResponse(ctx, ev, &pending, results, &inflight) {
					return
				}

			default:
				// Fan-out: every matching step gets its own execution. An
				// event matching no step is absorbed; sparse graphs are fine.
				for _, step := range r.reg.match(ev.Kind()) {
					inflight++
					go r.execute(ctx, step, ev, results)
				}
			}
		}

		if inflight == 0 {
			// Nothing pending and nothing in flight: the run is stalled,
			// typically on a barrier whose required count never arrives.
			// There is no consistency check for that case; the run simply
			// waits out its clock.
			<-ctx.Done()
			r.fail(ctx, ctx.Err())
			return
		}

		select {
		case res := <-results:
			inflight--
			if res.err != nil {
				r.fail(ctx, &flow.StepError{Step: res.step, Err: res.err})
				return
			}
			pending = append(pending, res.events...)
		case <-ctx.Done():
			r.fail(ctx, ctx.Err())
			return
		}
	}
}

// awaitResponse surfaces an input_required event and parks the run until a
// human_response is injected. Step executions still in flight may complete
// during the suspension; their outputs are queued but not dispatched until
// the run resumes, so context state round-trips the suspension untouched.
// Returns false if the run terminated while suspended.
func (r *runExec) awaitResponse(
	ctx context.Context,
	ev flow.Event,
	pending *[]flow.Event,
	results chan stepResult,
	inflight *int,
) bool {
	r.suspend()
	snap := r.snapshot()
	r.eng.observer.OnRunSuspended(ctx, snap, ev.String(flow.FieldPrefix))
	r.eng.appendHistory(ctx, snap, flow.HistoryRunSuspended, "", ev.String(flow.FieldPrefix))

	select {
	case r.out <- ev:
	case <-ctx.Done():
		r.fail(ctx, ctx.Err())
		return false
	}

	for {
		select {
		case resp := <-r.inject:
			r.setStatus(flow.StatusRunning)
			snap = r.snapshot()
			r.eng.observer.OnRunResumed(ctx, snap)
			r.eng.appendHistory(ctx, snap, flow.HistoryResponseReceived, "", "")
			*pending = append(*pending, resp)
			return true

		case res := <-results:
			*inflight--
			if res.err != nil {
				r.fail(ctx, &flow.StepError{Step: res.step, Err: res.err})
				return false
			}
			*pending = append(*pending, res.events...)

		case <-ctx.Done():
			r.fail(ctx, ctx.Err())
			return false
		}
	}
}

// drain waits out step executions still in flight when a stop event is
// dequeued, so the run only turns terminal once every started handler has
// finished. The stop already won: late outputs and errors are discarded.
func (r *runExec) drain(ctx context.Context, results chan stepResult, inflight int) {
	for inflight > 0 {
		select {
		case <-results:
			inflight--
		case <-ctx.Done():
			return
		}
	}
}

// execute runs one step handler off the dispatch goroutine and reports its
// result. If the run terminates first, the result is dropped on ctx.Done
// rather than blocking the sender forever.
func (r *runExec) execute(ctx context.Context, step flow.StepDefinition, ev flow.Event, results chan<- stepResult) {
	snap := r.snapshot()
	r.eng.observer.OnStepStart(ctx, snap, step.Name, ev.Kind())
	r.eng.appendHistory(ctx, snap, flow.HistoryStepStarted, step.Name, string(ev.Kind()))

	start := time.Now()
	events, err := callHandler(ctx, step, &stepContext{rc: r.rc, step: step.Name}, ev)
	duration := time.Since(start)

	snap = r.snapshot()
	r.eng.observer.OnStepCompleted(ctx, snap, step.Name, err, duration)
	if err != nil {
		r.eng.appendHistory(ctx, snap, flow.HistoryStepFailed, step.Name, err.Error())
	} else {
		r.eng.appendHistory(ctx, snap, flow.HistoryStepCompleted, step.Name, "")
	}

	select {
	case results <- stepResult{step: step.Name, events: events, err: err}:
	case <-ctx.Done():
	}
}

func callHandler(ctx context.Context, step flow.StepDefinition, fc flow.Context, ev flow.Event) (events []flow.Event, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return step.Fn(ctx, fc, ev)
}

func (r *runExec) finish(ctx context.Context, stop flow.Event) {
	result, _ := stop.Field(flow.FieldResult)

	r.mu.Lock()
	r.run.Status = flow.StatusCompleted
	r.run.Result = result
	r.result = result
	r.mu.Unlock()

	snap := r.snapshot()
	_ = r.eng.runs.UpdateRun(snap)
	r.eng.observer.OnRunCompleted(ctx, snap)
	r.eng.appendHistory(ctx, snap, flow.HistoryRunCompleted, "", "")

	// done closes first so Result never waits on a slow Events consumer; the
	// stop event is then delivered for anyone draining the stream. The send
	// yields to the run deadline so an abandoned stream cannot pin the loop
	// goroutine forever.
	close(r.done)
	select {
	case r.out <- stop:
	case <-ctx.Done():
	}
}

func (r *runExec) fail(ctx context.Context, cause error) {
	status := flow.StatusFailed
	histType := flow.HistoryRunFailed
	if errors.Is(cause, context.DeadlineExceeded) {
		status = flow.StatusTimedOut
		histType = flow.HistoryRunTimedOut
		cause = flow.ErrRunTimeout
	}

	r.mu.Lock()
	r.run.Status = status
	r.run.Err = cause
	r.err = cause
	r.mu.Unlock()

	snap := r.snapshot()
	_ = r.eng.runs.UpdateRun(snap)
	r.eng.observer.OnRunFailed(ctx, snap, cause)
	r.eng.appendHistory(ctx, snap, histType, "", cause.Error())

	close(r.done)
}
