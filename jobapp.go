package jobapp

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/janngomaa/ai-job-application/internal/engine"
	"github.com/janngomaa/ai-job-application/pkg/flow"
)

// Re-export key types so users don't need to dig into pkg/flow.

type (
	Engine               = flow.Engine
	Handle               = flow.Handle
	WorkflowDefinition   = flow.WorkflowDefinition
	StepDefinition       = flow.StepDefinition
	HandlerFunc          = flow.HandlerFunc
	Event                = flow.Event
	Kind                 = flow.Kind
	Run                  = flow.Run
	RunListOptions       = flow.RunListOptions
	Status               = flow.Status
	Observer             = flow.Observer
	LoggingObserver      = flow.LoggingObserver
	BasicMetrics         = flow.BasicMetrics
	BasicMetricsSnapshot = flow.BasicMetricsSnapshot
	CompositeObserver    = flow.CompositeObserver
	NoopObserver         = flow.NoopObserver
)

// Re-export common observer and error helpers.

var (
	NewLoggingObserver   = flow.NewLoggingObserver
	NewCompositeObserver = flow.NewCompositeObserver

	IsValidationError = flow.IsValidationError
	IsInjectionError  = flow.IsInjectionError

	ErrRunTimeout       = flow.ErrRunTimeout
	ErrRunNotFound      = flow.ErrRunNotFound
	ErrWorkflowNotFound = flow.ErrWorkflowNotFound
)

// Re-export status values for convenience.

const (
	StatusRunning      = flow.StatusRunning
	StatusWaitingInput = flow.StatusWaitingInput
	StatusCompleted    = flow.StatusCompleted
	StatusFailed       = flow.StatusFailed
	StatusTimedOut     = flow.StatusTimedOut
)

// Re-export the reserved event kinds and payload field names.

const (
	KindStart         = flow.KindStart
	KindStop          = flow.KindStop
	KindInputRequired = flow.KindInputRequired
	KindHumanResponse = flow.KindHumanResponse

	FieldPrefix   = flow.FieldPrefix
	FieldResult   = flow.FieldResult
	FieldResponse = flow.FieldResponse
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() Engine {
	return engine.NewInMemoryEngine()
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the given Observer.
func NewInMemoryEngineWithObserver(obs Observer) Engine {
	return engine.NewInMemoryEngineWithObserver(obs)
}

// NewSQLiteEngine returns an Engine that persists run records and run history
// in a SQLite database. Workflow definitions are kept in-memory.
func NewSQLiteEngine(db *sql.DB) (Engine, error) {
	return engine.NewSQLiteEngine(db)
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, obs Observer) (Engine, error) {
	return engine.NewSQLiteEngineWithObserver(db, obs)
}

// NewRedisEngine returns an Engine that persists run records in Redis.
func NewRedisEngine(client *redis.Client) Engine {
	return engine.NewRedisEngine(client)
}

// NewRedisEngineWithObserver returns a Redis-backed Engine with the given Observer.
func NewRedisEngineWithObserver(client *redis.Client, obs Observer) Engine {
	return engine.NewRedisEngineWithObserver(client, obs)
}

// Convenience helpers that just forward to the underlying Engine.

// Start begins a run of a registered workflow and returns its handle.
func Start(ctx context.Context, eng Engine, name string, args map[string]any) (Handle, error) {
	return eng.Start(ctx, name, args)
}

// GetRun fetches a run record by ID.
func GetRun(ctx context.Context, eng Engine, id string) (*Run, error) {
	return eng.GetRun(ctx, id)
}

// ListRuns lists run records according to the given options.
func ListRuns(ctx context.Context, eng Engine, opts RunListOptions) ([]*Run, error) {
	return eng.ListRuns(ctx, opts)
}
