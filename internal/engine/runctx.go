package engine

import (
	"sync"

	"github.com/janngomaa/ai-job-application/pkg/flow"
)

// runContext holds the mutable per-run state shared between step executions:
// the key/value store and the per-step barrier buffers. It belongs to exactly
// one run for that run's entire lifetime.
//
// All mutations go through a single mutex so that two concurrent Collect
// calls for the same step can never both observe an incomplete buffer or both
// drain the same instances.
type runContext struct {
	mu      sync.Mutex
	values  map[string]any
	buffers map[string]map[flow.Kind][]flow.Event
}

func newRunContext() *runContext {
	return &runContext{
		values:  make(map[string]any),
		buffers: make(map[string]map[flow.Kind][]flow.Event),
	}
}

func (c *runContext) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

func (c *runContext) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// collect appends ev into the buffer for step and attempts to drain the
// required multiset. The append, the satisfaction check and the drain form
// one critical section.
func (c *runContext) collect(step string, ev flow.Event, required []flow.Kind) ([]flow.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := c.buffers[step]
	if buf == nil {
		buf = make(map[flow.Kind][]flow.Event)
		c.buffers[step] = buf
	}
	buf[ev.Kind()] = append(buf[ev.Kind()], ev)

	// An empty requirement means the expected count is not yet known; the
	// event stays buffered for a later call made with the real multiset.
	if len(required) == 0 {
		return nil, false
	}

	counts := make(map[flow.Kind]int, len(required))
	order := make([]flow.Kind, 0, len(required))
	for _, kind := range required {
		if counts[kind] == 0 {
			order = append(order, kind)
		}
		counts[kind]++
	}
	for kind, n := range counts {
		if len(buf[kind]) < n {
			return nil, false
		}
	}

	// Satisfied: drain exactly the required count per kind, in arrival order,
	// leaving any surplus buffered for the next round.
	batch := make([]flow.Event, 0, len(required))
	for _, kind := range order {
		n := counts[kind]
		batch = append(batch, buf[kind][:n]...)
		rest := buf[kind][n:]
		if len(rest) == 0 {
			delete(buf, kind)
		} else {
			buf[kind] = append([]flow.Event(nil), rest...)
		}
	}
	return batch, true
}

// stepContext is the flow.Context view handed to one step's handler. It pins
// the step identity so Collect lands in the right barrier buffer.
type stepContext struct {
	rc   *runContext
	step string
}

var _ flow.Context = (*stepContext)(nil)

func (s *stepContext) Set(key string, value any) {
	s.rc.set(key, value)
}

func (s *stepContext) Get(key string) (any, bool) {
	return s.rc.get(key)
}

func (s *stepContext) Collect(ev flow.Event, required []flow.Kind) ([]flow.Event, bool) {
	return s.rc.collect(s.step, ev, required)
}
