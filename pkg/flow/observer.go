package flow

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay dispatch.
type Observer interface {
	// OnRunStart is called once per run, before the start event is dispatched.
	OnRunStart(ctx context.Context, run *Run)

	// OnRunSuspended is called when a run surfaces an input_required event
	// and transitions to WAITING_INPUT.
	OnRunSuspended(ctx context.Context, run *Run, prefix string)

	// OnRunResumed is called when an injected human_response un-suspends a run.
	OnRunResumed(ctx context.Context, run *Run)

	// OnRunCompleted is called when a run reaches COMPLETED.
	OnRunCompleted(ctx context.Context, run *Run)

	// OnRunFailed is called when a run reaches FAILED or TIMED_OUT; err is
	// the recorded cause (ErrRunTimeout for timeouts).
	OnRunFailed(ctx context.Context, run *Run, err error)

	// OnStepStart is called before a step handler executes.
	OnStepStart(ctx context.Context, run *Run, stepName string, kind Kind)

	// OnStepCompleted is called after a step handler returns, for both
	// successes and failures (err != nil).
	OnStepCompleted(ctx context.Context, run *Run, stepName string, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run *Run)                    {}
func (NoopObserver) OnRunSuspended(ctx context.Context, run *Run, prefix string) {}
func (NoopObserver) OnRunResumed(ctx context.Context, run *Run)                  {}
func (NoopObserver) OnRunCompleted(ctx context.Context, run *Run)                {}
func (NoopObserver) OnRunFailed(ctx context.Context, run *Run, err error)        {}
func (NoopObserver) OnStepStart(ctx context.Context, run *Run, stepName string, kind Kind) {
}
func (NoopObserver) OnStepCompleted(ctx context.Context, run *Run, stepName string, err error, d time.Duration) {
}

// CompositeObserver fans out callbacks to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards callbacks to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run *Run) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnRunSuspended(ctx context.Context, run *Run, prefix string) {
	for _, o := range c.observers {
		o.OnRunSuspended(ctx, run, prefix)
	}
}

func (c *CompositeObserver) OnRunResumed(ctx context.Context, run *Run) {
	for _, o := range c.observers {
		o.OnRunResumed(ctx, run)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, run *Run) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, run)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, run *Run, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, run *Run, stepName string, kind Kind) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, run, stepName, kind)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, run *Run, stepName string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, run, stepName, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run / step lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, run *Run) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("workflow", run.WorkflowName),
		slog.String("run_id", run.ID),
	)
}

func (o *LoggingObserver) OnRunSuspended(ctx context.Context, run *Run, prefix string) {
	o.Logger.InfoContext(ctx, "run_suspended",
		slog.String("workflow", run.WorkflowName),
		slog.String("run_id", run.ID),
		slog.String("prefix", prefix),
	)
}

func (o *LoggingObserver) OnRunResumed(ctx context.Context, run *Run) {
	o.Logger.InfoContext(ctx, "run_resumed",
		slog.String("workflow", run.WorkflowName),
		slog.String("run_id", run.ID),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, run *Run) {
	o.Logger.InfoContext(ctx, "run_completed",
		slog.String("workflow", run.WorkflowName),
		slog.String("run_id", run.ID),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, run *Run, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("workflow", run.WorkflowName),
		slog.String("run_id", run.ID),
		slog.String("status", string(run.Status)),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, run *Run, stepName string, kind Kind) {
	o.Logger.DebugContext(ctx, "step_start",
		slog.String("workflow", run.WorkflowName),
		slog.String("run_id", run.ID),
		slog.String("step", stepName),
		slog.String("event_kind", string(kind)),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, run *Run, stepName string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_completed",
		slog.String("workflow", run.WorkflowName),
		slog.String("run_id", run.ID),
		slog.String("step", stepName),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted       atomic.Int64
	runsCompleted     atomic.Int64
	runsFailed        atomic.Int64
	suspensions       atomic.Int64
	stepsCompleted    atomic.Int64
	totalStepDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	ActiveRuns    int64
	Suspensions   int64

	StepsCompleted  int64
	AvgStepDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, run *Run) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunSuspended(ctx context.Context, run *Run, prefix string) {
	m.suspensions.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, run *Run) {
	m.runsCompleted.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, run *Run, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, run *Run, stepName string, err error, d time.Duration) {
	// Only count successful steps for average duration.
	if err == nil {
		m.stepsCompleted.Add(1)
		m.totalStepDuration.Add(d.Nanoseconds())
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsCompleted:   completed,
		RunsFailed:      failed,
		ActiveRuns:      started - completed - failed,
		Suspensions:     m.suspensions.Load(),
		StepsCompleted:  steps,
		AvgStepDuration: avg,
	}
}
