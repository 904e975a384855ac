package engine

import (
	"fmt"
	"testing"

	"github.com/janngomaa/ai-job-application/pkg/flow"
)

func responseEvent(field string) flow.Event {
	return flow.NewEvent("field_response", map[string]any{"field": field})
}

func TestCollectIncompleteUntilSatisfied(t *testing.T) {
	t.Parallel()

	rc := newRunContext()
	required := flow.Repeat("field_response", 3)

	for i := 0; i < 2; i++ {
		batch, ok := rc.collect("barrier", responseEvent(fmt.Sprintf("f%d", i)), required)
		if ok {
			t.Fatalf("barrier released early after %d of 3 events: %v", i+1, batch)
		}
	}

	batch, ok := rc.collect("barrier", responseEvent("f2"), required)
	if !ok {
		t.Fatal("barrier did not release on the final event")
	}
	if len(batch) != 3 {
		t.Fatalf("batch size = %d, want 3", len(batch))
	}
	// Arrival order is preserved within a kind.
	for i, ev := range batch {
		if got := ev.String("field"); got != fmt.Sprintf("f%d", i) {
			t.Fatalf("batch[%d].field = %q, want f%d", i, got, i)
		}
	}
}

func TestCollectDrainsExactlyOnce(t *testing.T) {
	t.Parallel()

	rc := newRunContext()
	required := flow.Repeat("field_response", 2)

	if _, ok := rc.collect("barrier", responseEvent("a"), required); ok {
		t.Fatal("released with one of two events")
	}
	if _, ok := rc.collect("barrier", responseEvent("b"), required); !ok {
		t.Fatal("did not release at two events")
	}

	// The buffer was drained; the next round starts from scratch.
	if _, ok := rc.collect("barrier", responseEvent("c"), required); ok {
		t.Fatal("released again without a full new batch")
	}
}

func TestCollectLeavesSurplusBuffered(t *testing.T) {
	t.Parallel()

	rc := newRunContext()
	required := flow.Repeat("field_response", 2)

	// Three arrivals against a requirement of two: the drain takes the two
	// oldest and leaves the third for the next round.
	rc.collect("barrier", responseEvent("a"), required)
	batch, ok := rc.collect("barrier", responseEvent("b"), required)
	if !ok || len(batch) != 2 {
		t.Fatalf("first drain: ok=%v len=%d", ok, len(batch))
	}
	if batch[0].String("field") != "a" || batch[1].String("field") != "b" {
		t.Fatalf("first drain order: %v, %v", batch[0].Fields(), batch[1].Fields())
	}

	if _, ok := rc.collect("barrier", responseEvent("c"), required); ok {
		t.Fatal("surplus alone should not satisfy a two-event requirement")
	}
	batch, ok = rc.collect("barrier", responseEvent("d"), required)
	if !ok || batch[0].String("field") != "c" || batch[1].String("field") != "d" {
		t.Fatalf("second drain: ok=%v batch=%v", ok, batch)
	}
}

func TestCollectMixedKinds(t *testing.T) {
	t.Parallel()

	rc := newRunContext()
	required := []flow.Kind{"a", "a", "b"}

	if _, ok := rc.collect("barrier", flow.NewEvent("a", map[string]any{"n": 1}), required); ok {
		t.Fatal("released early")
	}
	if _, ok := rc.collect("barrier", flow.NewEvent("b", map[string]any{"n": 2}), required); ok {
		t.Fatal("released early")
	}
	batch, ok := rc.collect("barrier", flow.NewEvent("a", map[string]any{"n": 3}), required)
	if !ok {
		t.Fatal("did not release once the multiset was satisfied")
	}
	if len(batch) != 3 {
		t.Fatalf("batch size = %d, want 3", len(batch))
	}
	// Kinds are grouped in first-occurrence order of the requirement.
	if batch[0].Kind() != "a" || batch[1].Kind() != "a" || batch[2].Kind() != "b" {
		t.Fatalf("batch kinds: %v %v %v", batch[0].Kind(), batch[1].Kind(), batch[2].Kind())
	}
}

func TestCollectEmptyRequirementBuffers(t *testing.T) {
	t.Parallel()

	rc := newRunContext()

	// Count not yet known: events accumulate without release.
	if _, ok := rc.collect("barrier", responseEvent("a"), nil); ok {
		t.Fatal("released with an empty requirement")
	}

	// Once the count is known, earlier arrivals are still there.
	batch, ok := rc.collect("barrier", responseEvent("b"), flow.Repeat("field_response", 2))
	if !ok || len(batch) != 2 {
		t.Fatalf("ok=%v len=%d, want release of both buffered events", ok, len(batch))
	}
}

func TestCollectBuffersAreScopedPerStep(t *testing.T) {
	t.Parallel()

	rc := newRunContext()
	required := flow.Repeat("field_response", 2)

	rc.collect("one", responseEvent("a"), required)
	if _, ok := rc.collect("two", responseEvent("b"), required); ok {
		t.Fatal("barrier for step two saw step one's events")
	}
}

func TestStepContextKeyValues(t *testing.T) {
	t.Parallel()

	rc := newRunContext()
	a := &stepContext{rc: rc, step: "a"}
	b := &stepContext{rc: rc, step: "b"}

	if _, ok := a.Get("total_fields"); ok {
		t.Fatal("Get on empty context reported a value")
	}

	// The key/value store is shared across steps of the run.
	a.Set("total_fields", 3)
	v, ok := b.Get("total_fields")
	if !ok || v.(int) != 3 {
		t.Fatalf("Get = %v, %v", v, ok)
	}

	b.Set("total_fields", 5)
	if v, _ := a.Get("total_fields"); v.(int) != 5 {
		t.Fatalf("last write should win, got %v", v)
	}
}
