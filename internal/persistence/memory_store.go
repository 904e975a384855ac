package persistence

import (
	"sync"

	"github.com/janngomaa/ai-job-application/pkg/flow"
)

// InMemoryStore is a simple, goroutine-safe RunStore backed by a map.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*flow.Run
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{runs: make(map[string]*flow.Run)}
}

// Ensure InMemoryStore implements the interface.
var _ RunStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveRun(run *flow.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *InMemoryStore) UpdateRun(run *flow.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return ErrRunNotFound
	}
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *InMemoryStore) GetRun(id string) (*flow.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (s *InMemoryStore) ListRuns(filter RunFilter) ([]*flow.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*flow.Run
	for _, run := range s.runs {
		if filter.WorkflowName != "" && run.WorkflowName != filter.WorkflowName {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		cp := *run
		result = append(result, &cp)
	}
	return result, nil
}
