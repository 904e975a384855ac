package engine

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/janngomaa/ai-job-application/pkg/flow"
)

func passthroughStep(name string, accepts flow.Kind, emit func(ev flow.Event) []flow.Event) flow.StepDefinition {
	return flow.StepDefinition{
		Name:    name,
		Accepts: []flow.Kind{accepts},
		Fn: func(ctx context.Context, fc flow.Context, ev flow.Event) ([]flow.Event, error) {
			return emit(ev), nil
		},
	}
}

func stopOnStart() flow.WorkflowDefinition {
	return flow.WorkflowDefinition{
		Name: "trivial",
		Steps: []flow.StepDefinition{
			passthroughStep("only", flow.KindStart, func(ev flow.Event) []flow.Event {
				return []flow.Event{flow.NewStop("done")}
			}),
		},
	}
}

func TestRegisterWorkflowValidation(t *testing.T) {
	t.Parallel()

	noop := func(ctx context.Context, fc flow.Context, ev flow.Event) ([]flow.Event, error) {
		return nil, nil
	}

	cases := []struct {
		name string
		def  flow.WorkflowDefinition
	}{
		{"empty name", flow.WorkflowDefinition{
			Steps: []flow.StepDefinition{{Name: "s", Accepts: []flow.Kind{flow.KindStart}, Fn: noop}},
		}},
		{"no steps", flow.WorkflowDefinition{Name: "wf"}},
		{"duplicate step names", flow.WorkflowDefinition{
			Name: "wf",
			Steps: []flow.StepDefinition{
				{Name: "s", Accepts: []flow.Kind{flow.KindStart}, Fn: noop},
				{Name: "s", Accepts: []flow.Kind{"other"}, Fn: noop},
			},
		}},
		{"nil handler", flow.WorkflowDefinition{
			Name:  "wf",
			Steps: []flow.StepDefinition{{Name: "s", Accepts: []flow.Kind{flow.KindStart}}},
		}},
		{"empty accepts", flow.WorkflowDefinition{
			Name:  "wf",
			Steps: []flow.StepDefinition{{Name: "s", Fn: noop}},
		}},
		{"step accepts stop", flow.WorkflowDefinition{
			Name: "wf",
			Steps: []flow.StepDefinition{
				{Name: "a", Accepts: []flow.Kind{flow.KindStart}, Fn: noop},
				{Name: "b", Accepts: []flow.Kind{flow.KindStop}, Fn: noop},
			},
		}},
		{"step accepts input_required", flow.WorkflowDefinition{
			Name: "wf",
			Steps: []flow.StepDefinition{
				{Name: "a", Accepts: []flow.Kind{flow.KindStart}, Fn: noop},
				{Name: "b", Accepts: []flow.Kind{flow.KindInputRequired}, Fn: noop},
			},
		}},
		{"no start acceptor", flow.WorkflowDefinition{
			Name:  "wf",
			Steps: []flow.StepDefinition{{Name: "s", Accepts: []flow.Kind{"other"}, Fn: noop}},
		}},
		{"two human_response acceptors", flow.WorkflowDefinition{
			Name: "wf",
			Steps: []flow.StepDefinition{
				{Name: "a", Accepts: []flow.Kind{flow.KindStart}, Fn: noop},
				{Name: "b", Accepts: []flow.Kind{flow.KindHumanResponse}, Fn: noop},
				{Name: "c", Accepts: []flow.Kind{flow.KindHumanResponse}, Fn: noop},
			},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := NewInMemoryEngine()
			if err := eng.RegisterWorkflow(tc.def); err == nil {
				t.Fatalf("RegisterWorkflow accepted invalid definition")
			}
		})
	}
}

func TestRegisterWorkflowDuplicate(t *testing.T) {
	t.Parallel()

	eng := NewInMemoryEngine()
	if err := eng.RegisterWorkflow(stopOnStart()); err != nil {
		t.Fatalf("RegisterWorkflow failed: %v", err)
	}
	if err := eng.RegisterWorkflow(stopOnStart()); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestStartUnknownWorkflow(t *testing.T) {
	t.Parallel()

	eng := NewInMemoryEngine()
	_, err := eng.Start(context.Background(), "nope", nil)
	if !errors.Is(err, flow.ErrWorkflowNotFound) {
		t.Fatalf("expected ErrWorkflowNotFound, got %v", err)
	}
}

func TestStartValidatesRequiredArgs(t *testing.T) {
	t.Parallel()

	def := stopOnStart()
	def.RequiredArgs = []string{"resume_file", "application_form"}

	eng := NewInMemoryEngine()
	if err := eng.RegisterWorkflow(def); err != nil {
		t.Fatalf("RegisterWorkflow failed: %v", err)
	}

	ctx := context.Background()
	cases := []map[string]any{
		nil,
		{"resume_file": "r.md"},
		{"resume_file": "r.md", "application_form": ""},
		{"resume_file": "r.md", "application_form": nil},
	}
	for _, args := range cases {
		_, err := eng.Start(ctx, "trivial", args)
		if _, ok := flow.IsValidationError(err); !ok {
			t.Fatalf("args %v: expected ValidationError, got %v", args, err)
		}
	}

	// Nothing should have been persisted for rejected starts.
	runs, err := eng.ListRuns(ctx, flow.RunListOptions{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("rejected starts left %d run records", len(runs))
	}
}

func TestRunRecordLifecycle(t *testing.T) {
	t.Parallel()

	eng := NewInMemoryEngine()
	if err := eng.RegisterWorkflow(stopOnStart()); err != nil {
		t.Fatalf("RegisterWorkflow failed: %v", err)
	}

	ctx := context.Background()
	h, err := eng.Start(ctx, "trivial", nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := h.Result(ctx)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if result != "done" {
		t.Fatalf("result = %v, want done", result)
	}

	run, err := eng.GetRun(ctx, h.RunID())
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != flow.StatusCompleted {
		t.Fatalf("status = %s, want %s", run.Status, flow.StatusCompleted)
	}
	if run.Result != "done" {
		t.Fatalf("persisted result = %v, want done", run.Result)
	}

	if _, err := eng.GetRun(ctx, "missing"); !errors.Is(err, flow.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRunsFilters(t *testing.T) {
	t.Parallel()

	eng := NewInMemoryEngine()
	if err := eng.RegisterWorkflow(stopOnStart()); err != nil {
		t.Fatalf("RegisterWorkflow failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		h, err := eng.Start(ctx, "trivial", nil)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if _, err := h.Result(ctx); err != nil {
			t.Fatalf("Result failed: %v", err)
		}
	}

	runs, err := eng.ListRuns(ctx, flow.RunListOptions{WorkflowName: "trivial", Status: flow.StatusCompleted})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}

	runs, err = eng.ListRuns(ctx, flow.RunListOptions{WorkflowName: "other"})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("got %d runs for unknown workflow, want 0", len(runs))
	}
}

func TestSQLiteEngineCompletesRun(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	eng, err := NewSQLiteEngine(db)
	if err != nil {
		t.Fatalf("NewSQLiteEngine failed: %v", err)
	}
	if err := eng.RegisterWorkflow(stopOnStart()); err != nil {
		t.Fatalf("RegisterWorkflow failed: %v", err)
	}

	ctx := context.Background()
	h, err := eng.Start(ctx, "trivial", nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := h.Result(ctx); err != nil {
		t.Fatalf("Result failed: %v", err)
	}

	run, err := eng.GetRun(ctx, h.RunID())
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != flow.StatusCompleted {
		t.Fatalf("status = %s, want %s", run.Status, flow.StatusCompleted)
	}
	if run.StartedAt.IsZero() || time.Since(run.StartedAt) > time.Minute {
		t.Fatalf("suspicious StartedAt: %v", run.StartedAt)
	}
}
