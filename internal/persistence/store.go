package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/janngomaa/ai-job-application/pkg/flow"
)

// ErrRunNotFound is returned when a run record is not in the store.
var ErrRunNotFound = errors.New("run not found in store")

// RunFilter is used to select runs from the store.
// Empty string / zero status mean "no filter" for that field.
type RunFilter struct {
	WorkflowName string
	Status       flow.Status
}

// RunStore handles storage of run records. The engine hands stores defensive
// snapshots; implementations must not alias what callers keep mutating.
type RunStore interface {
	SaveRun(run *flow.Run) error
	UpdateRun(run *flow.Run) error
	GetRun(id string) (*flow.Run, error)
	ListRuns(filter RunFilter) ([]*flow.Run, error)
}

// EventStore is an append-only history store for run lifecycle events.
type EventStore interface {
	AppendEvent(ctx context.Context, ev flow.RunEvent) error
	ListEvents(ctx context.Context, runID string) ([]flow.RunEvent, error)
}

// NoopEventStore discards all events.
type NoopEventStore struct{}

func (NoopEventStore) AppendEvent(ctx context.Context, ev flow.RunEvent) error { return nil }
func (NoopEventStore) ListEvents(ctx context.Context, runID string) ([]flow.RunEvent, error) {
	return nil, nil
}

// InMemoryEventStore keeps run history in memory, keyed by run ID.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string][]flow.RunEvent
}

var _ EventStore = (*InMemoryEventStore)(nil)

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[string][]flow.RunEvent)}
}

func (s *InMemoryEventStore) AppendEvent(ctx context.Context, ev flow.RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.RunID] = append(s.events[ev.RunID], ev)
	return nil
}

func (s *InMemoryEventStore) ListEvents(ctx context.Context, runID string) ([]flow.RunEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.events[runID]
	out := make([]flow.RunEvent, len(evs))
	copy(out, evs)
	return out, nil
}
