package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/janngomaa/ai-job-application/internal/persistence"
	"github.com/janngomaa/ai-job-application/pkg/flow"
)

// engineImpl is an in-process implementation of flow.Engine. Each started run
// gets its own dispatch goroutine; the engine itself only holds the immutable
// workflow registries, the stores and the observer.
type engineImpl struct {
	mu        sync.RWMutex
	workflows map[string]*registry

	runs     persistence.RunStore
	history  persistence.EventStore
	observer flow.Observer
}

// Config describes how to construct an engineImpl.
// Only used inside this package; external callers use the helper functions.
type Config struct {
	Runs     persistence.RunStore
	History  persistence.EventStore
	Observer flow.Observer
}

// NewEngineWithConfig creates a new Engine using the given configuration.
func NewEngineWithConfig(cfg Config) flow.Engine {
	runs := cfg.Runs
	if runs == nil {
		runs = persistence.NewInMemoryStore()
	}
	history := cfg.History
	if history == nil {
		history = persistence.NoopEventStore{}
	}
	obs := cfg.Observer
	if obs == nil {
		obs = flow.NoopObserver{}
	}
	return &engineImpl{
		workflows: make(map[string]*registry),
		runs:      runs,
		history:   history,
		observer:  obs,
	}
}

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() flow.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngineWithConfig(Config{Runs: mem, History: persistence.NewInMemoryEventStore()})
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the given Observer.
func NewInMemoryEngineWithObserver(obs flow.Observer) flow.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngineWithConfig(Config{
		Runs:     mem,
		History:  persistence.NewInMemoryEventStore(),
		Observer: obs,
	})
}

// NewSQLiteEngine returns an Engine that persists run records and run history
// in a SQLite database.
func NewSQLiteEngine(db *sql.DB) (flow.Engine, error) {
	return NewSQLiteEngineWithObserver(db, nil)
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, obs flow.Observer) (flow.Engine, error) {
	runs, err := persistence.NewSQLiteRunStore(db)
	if err != nil {
		return nil, err
	}
	history, err := persistence.NewSQLiteEventStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(Config{Runs: runs, History: history, Observer: obs}), nil
}

// NewRedisEngine returns an Engine that persists run records in Redis.
// Run history stays in-memory.
func NewRedisEngine(client *redis.Client) flow.Engine {
	return NewRedisEngineWithObserver(client, nil)
}

// NewRedisEngineWithObserver returns a Redis-backed Engine with the given Observer.
func NewRedisEngineWithObserver(client *redis.Client, obs flow.Observer) flow.Engine {
	return NewEngineWithConfig(Config{
		Runs:     persistence.NewRedisRunStore(client, "jobapp:"),
		History:  persistence.NewInMemoryEventStore(),
		Observer: obs,
	})
}

func (e *engineImpl) RegisterWorkflow(def flow.WorkflowDefinition) error {
	reg, err := buildRegistry(def)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.workflows[def.Name]; exists {
		return fmt.Errorf("workflow already registered: %s", def.Name)
	}
	e.workflows[def.Name] = reg
	return nil
}

func (e *engineImpl) Start(ctx context.Context, name string, args map[string]any) (flow.Handle, error) {
	e.mu.RLock()
	reg, ok := e.workflows[name]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", flow.ErrWorkflowNotFound, name)
	}

	// Fail fast, before any run state is allocated.
	for _, field := range reg.def.RequiredArgs {
		if v, present := args[field]; !present || v == nil || v == "" {
			return nil, &flow.ValidationError{Field: field}
		}
	}

	run := &flow.Run{
		ID:           uuid.NewString(),
		WorkflowName: name,
		Status:       flow.StatusRunning,
		StartedAt:    time.Now(),
	}
	r := &runExec{
		eng:    e,
		reg:    reg,
		rc:     newRunContext(),
		args:   copyArgs(args),
		run:    run,
		out:    make(chan flow.Event, 4),
		inject: make(chan flow.Event, 1),
		done:   make(chan struct{}),
	}

	if err := e.runs.SaveRun(r.snapshot()); err != nil {
		return nil, err
	}
	snap := r.snapshot()
	e.observer.OnRunStart(ctx, snap)
	e.appendHistory(ctx, snap, flow.HistoryRunStarted, "", "")

	// The loop deliberately does not inherit the caller's context: Start is
	// non-blocking and the caller's request may end long before the run does.
	// The per-run timeout is the cancellation mechanism.
	go r.loop(context.Background())

	return r, nil
}

func (e *engineImpl) GetRun(ctx context.Context, id string) (*flow.Run, error) {
	run, err := e.runs.GetRun(id)
	if errors.Is(err, persistence.ErrRunNotFound) {
		return nil, fmt.Errorf("%w: %s", flow.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (e *engineImpl) ListRuns(ctx context.Context, opts flow.RunListOptions) ([]*flow.Run, error) {
	return e.runs.ListRuns(persistence.RunFilter{
		WorkflowName: opts.WorkflowName,
		Status:       opts.Status,
	})
}

// appendHistory records a history event. History is best-effort audit data;
// append failures never disturb the run, and a run terminating on its
// deadline must still be able to record that fact, hence WithoutCancel.
func (e *engineImpl) appendHistory(ctx context.Context, run *flow.Run, typ flow.HistoryEventType, step, detail string) {
	_ = e.history.AppendEvent(context.WithoutCancel(ctx), flow.RunEvent{
		RunID:        run.ID,
		At:           time.Now(),
		Type:         typ,
		WorkflowName: run.WorkflowName,
		Step:         step,
		Detail:       detail,
	})
}

func copyArgs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
