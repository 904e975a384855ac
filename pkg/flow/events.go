package flow

// Kind identifies the type of an Event. Step routing is by exact kind
// equality: a step receives every event whose kind appears in its accept set.
type Kind string

// Reserved kinds. The dispatcher gives these special treatment; workflows
// define their own kinds for everything else.
const (
	// KindStart carries the run arguments. It is the first event dispatched
	// in every run.
	KindStart Kind = "start"

	// KindStop carries the final result and terminates the run.
	KindStop Kind = "stop"

	// KindInputRequired suspends the run and surfaces the event to the run
	// handle so an external actor can review intermediate output. It is never
	// routed to steps.
	KindInputRequired Kind = "input_required"

	// KindHumanResponse is injected through the run handle while the run is
	// waiting for input. Exactly one step per workflow may accept it.
	KindHumanResponse Kind = "human_response"
)

// Well-known payload field names used by the reserved kinds.
const (
	// FieldPrefix holds the review prompt on an input_required event.
	FieldPrefix = "prefix"

	// FieldResult holds the intermediate artifact on an input_required event
	// and the final artifact on a stop event.
	FieldResult = "result"

	// FieldResponse holds the free-text reply on a human_response event.
	FieldResponse = "response"
)

// Event is an immutable typed message exchanged between steps. The payload is
// copied on construction and on read, so an Event can be shared freely between
// goroutines.
type Event struct {
	kind   Kind
	fields map[string]any
}

// NewEvent constructs an event of the given kind. The fields map is copied;
// later mutation of the caller's map does not affect the event.
func NewEvent(kind Kind, fields map[string]any) Event {
	return Event{kind: kind, fields: copyFields(fields)}
}

// NewStart constructs the start event that carries the run arguments.
func NewStart(args map[string]any) Event {
	return NewEvent(KindStart, args)
}

// NewStop constructs the terminal event carrying the final result.
func NewStop(result any) Event {
	return NewEvent(KindStop, map[string]any{FieldResult: result})
}

// NewInputRequired constructs the event that suspends a run pending external
// input. prefix is the prompt shown to the reviewer, result the intermediate
// artifact under review.
func NewInputRequired(prefix string, result any) Event {
	return NewEvent(KindInputRequired, map[string]any{
		FieldPrefix: prefix,
		FieldResult: result,
	})
}

// NewHumanResponse constructs the injected reply to an input_required event.
func NewHumanResponse(response string) Event {
	return NewEvent(KindHumanResponse, map[string]any{FieldResponse: response})
}

// Kind returns the event's kind discriminator.
func (e Event) Kind() Kind {
	return e.kind
}

// Field returns the payload value stored under key.
func (e Event) Field(key string) (any, bool) {
	v, ok := e.fields[key]
	return v, ok
}

// String returns the payload value under key as a string, or "" if the field
// is absent or not a string.
func (e Event) String(key string) string {
	s, _ := e.fields[key].(string)
	return s
}

// Fields returns a copy of the full payload.
func (e Event) Fields() map[string]any {
	return copyFields(e.fields)
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
