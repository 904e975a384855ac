package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/janngomaa/ai-job-application/internal/persistence"
	"github.com/janngomaa/ai-job-application/pkg/flow"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) record(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, name)
}

func (o *recordingObserver) count(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.events {
		if e == name {
			n++
		}
	}
	return n
}

func (o *recordingObserver) OnRunStart(ctx context.Context, run *flow.Run) { o.record("run_start") }
func (o *recordingObserver) OnRunSuspended(ctx context.Context, run *flow.Run, prefix string) {
	o.record("run_suspended")
}
func (o *recordingObserver) OnRunResumed(ctx context.Context, run *flow.Run) { o.record("run_resumed") }
func (o *recordingObserver) OnRunCompleted(ctx context.Context, run *flow.Run) {
	o.record("run_completed")
}
func (o *recordingObserver) OnRunFailed(ctx context.Context, run *flow.Run, err error) {
	o.record("run_failed")
}
func (o *recordingObserver) OnStepStart(ctx context.Context, run *flow.Run, stepName string, kind flow.Kind) {
	o.record("step_start")
}
func (o *recordingObserver) OnStepCompleted(ctx context.Context, run *flow.Run, stepName string, err error, d time.Duration) {
	o.record("step_completed")
}

func TestObserverSeesFullLifecycle(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	eng := NewInMemoryEngineWithObserver(obs)
	if err := eng.RegisterWorkflow(reviewWorkflow(2, 0)); err != nil {
		t.Fatalf("RegisterWorkflow failed: %v", err)
	}

	ctx := context.Background()
	h, err := eng.Start(ctx, "review", nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if ev, _ := nextEvent(t, h); ev.Kind() != flow.KindInputRequired {
		t.Fatalf("unexpected event %v", ev)
	}
	if err := h.Respond("ok"); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if _, err := h.Result(ctx); err != nil {
		t.Fatalf("Result failed: %v", err)
	}

	if got := obs.count("run_start"); got != 1 {
		t.Errorf("run_start = %d, want 1", got)
	}
	if got := obs.count("run_suspended"); got != 1 {
		t.Errorf("run_suspended = %d, want 1", got)
	}
	if got := obs.count("run_resumed"); got != 1 {
		t.Errorf("run_resumed = %d, want 1", got)
	}
	if got := obs.count("run_completed"); got != 1 {
		t.Errorf("run_completed = %d, want 1", got)
	}
	if got := obs.count("run_failed"); got != 0 {
		t.Errorf("run_failed = %d, want 0", got)
	}

	// fan_out + 2x work + 2x gate + judge = 6 step executions.
	if got := obs.count("step_start"); got != 6 {
		t.Errorf("step_start = %d, want 6", got)
	}
	if got := obs.count("step_completed"); got != 6 {
		t.Errorf("step_completed = %d, want 6", got)
	}
}

func TestHistoryRecordsRunEvents(t *testing.T) {
	t.Parallel()

	history := persistence.NewInMemoryEventStore()
	eng := NewEngineWithConfig(Config{History: history})
	if err := eng.RegisterWorkflow(reviewWorkflow(1, 0)); err != nil {
		t.Fatalf("RegisterWorkflow failed: %v", err)
	}

	ctx := context.Background()
	h, err := eng.Start(ctx, "review", nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if ev, _ := nextEvent(t, h); ev.Kind() != flow.KindInputRequired {
		t.Fatalf("unexpected event %v", ev)
	}
	if err := h.Respond("ok"); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if _, err := h.Result(ctx); err != nil {
		t.Fatalf("Result failed: %v", err)
	}

	events, err := history.ListEvents(ctx, h.RunID())
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}

	counts := make(map[flow.HistoryEventType]int)
	for _, ev := range events {
		counts[ev.Type]++
	}
	if counts[flow.HistoryRunStarted] != 1 {
		t.Errorf("run.started = %d, want 1", counts[flow.HistoryRunStarted])
	}
	if counts[flow.HistoryRunSuspended] != 1 {
		t.Errorf("run.suspended = %d, want 1", counts[flow.HistoryRunSuspended])
	}
	if counts[flow.HistoryResponseReceived] != 1 {
		t.Errorf("response.received = %d, want 1", counts[flow.HistoryResponseReceived])
	}
	if counts[flow.HistoryRunCompleted] != 1 {
		t.Errorf("run.completed = %d, want 1", counts[flow.HistoryRunCompleted])
	}
	if counts[flow.HistoryStepStarted] == 0 || counts[flow.HistoryStepStarted] != counts[flow.HistoryStepCompleted] {
		t.Errorf("step history mismatch: started=%d completed=%d",
			counts[flow.HistoryStepStarted], counts[flow.HistoryStepCompleted])
	}
}
