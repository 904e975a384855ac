package flow

import "time"

// HistoryEventType identifies a run history event.
type HistoryEventType string

const (
	HistoryRunStarted       HistoryEventType = "run.started"
	HistoryRunSuspended     HistoryEventType = "run.suspended"
	HistoryResponseReceived HistoryEventType = "response.received"
	HistoryRunCompleted     HistoryEventType = "run.completed"
	HistoryRunFailed        HistoryEventType = "run.failed"
	HistoryRunTimedOut      HistoryEventType = "run.timed_out"

	HistoryStepStarted   HistoryEventType = "step.started"
	HistoryStepCompleted HistoryEventType = "step.completed"
	HistoryStepFailed    HistoryEventType = "step.failed"
)

// RunEvent is a minimal append-only history record for audit/debugging.
// It is intentionally small and stable; richer history can be layered later.
type RunEvent struct {
	RunID string
	At    time.Time
	Type  HistoryEventType

	// Optional context.
	WorkflowName string
	Step         string

	// Small, human-oriented details (e.g. event kind, error string).
	// Keep this low-volume: do NOT dump large payloads here.
	Detail string
}
