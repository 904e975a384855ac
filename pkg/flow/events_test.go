package flow

import (
	"testing"
)

func TestEventPayloadIsCopied(t *testing.T) {
	t.Parallel()

	fields := map[string]any{"field": "Name", "query": "q"}
	ev := NewEvent(Kind("field_query"), fields)

	// Mutating the source map after construction must not leak into the event.
	fields["field"] = "changed"
	if got := ev.String("field"); got != "Name" {
		t.Fatalf("event payload mutated through source map: got %q", got)
	}

	// Mutating a read-out copy must not leak back either.
	out := ev.Fields()
	out["field"] = "changed again"
	if got := ev.String("field"); got != "Name" {
		t.Fatalf("event payload mutated through Fields copy: got %q", got)
	}
}

func TestEventFieldAccess(t *testing.T) {
	t.Parallel()

	ev := NewEvent(Kind("field_response"), map[string]any{
		"field": "Email",
		"count": 3,
	})

	if ev.Kind() != Kind("field_response") {
		t.Fatalf("unexpected kind %q", ev.Kind())
	}
	if v, ok := ev.Field("count"); !ok || v.(int) != 3 {
		t.Fatalf("Field(count) = %v, %v", v, ok)
	}
	if _, ok := ev.Field("missing"); ok {
		t.Fatal("Field reported a missing key as present")
	}
	if got := ev.String("count"); got != "" {
		t.Fatalf("String on non-string field = %q, want empty", got)
	}
}

func TestReservedConstructors(t *testing.T) {
	t.Parallel()

	start := NewStart(map[string]any{"resume_file": "r.md"})
	if start.Kind() != KindStart || start.String("resume_file") != "r.md" {
		t.Fatalf("unexpected start event: %v", start)
	}

	stop := NewStop("final")
	if stop.Kind() != KindStop || stop.String(FieldResult) != "final" {
		t.Fatalf("unexpected stop event: %v", stop)
	}

	req := NewInputRequired("check this", "draft")
	if req.Kind() != KindInputRequired {
		t.Fatalf("unexpected kind %q", req.Kind())
	}
	if req.String(FieldPrefix) != "check this" || req.String(FieldResult) != "draft" {
		t.Fatalf("unexpected input_required payload: %v", req.Fields())
	}

	resp := NewHumanResponse("looks good")
	if resp.Kind() != KindHumanResponse || resp.String(FieldResponse) != "looks good" {
		t.Fatalf("unexpected human_response event: %v", resp)
	}
}

func TestRepeat(t *testing.T) {
	t.Parallel()

	ks := Repeat(Kind("field_response"), 3)
	if len(ks) != 3 {
		t.Fatalf("Repeat returned %d kinds, want 3", len(ks))
	}
	for _, k := range ks {
		if k != Kind("field_response") {
			t.Fatalf("unexpected kind %q", k)
		}
	}
	if Repeat(Kind("x"), 0) != nil {
		t.Fatal("Repeat(0) should be nil")
	}
	if Repeat(Kind("x"), -1) != nil {
		t.Fatal("Repeat(-1) should be nil")
	}
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	cases := map[Status]bool{
		StatusRunning:      false,
		StatusWaitingInput: false,
		StatusCompleted:    true,
		StatusFailed:       true,
		StatusTimedOut:     true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
