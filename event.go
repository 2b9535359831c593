package beacon

import (
	"sync"
	"time"
)

// Payload carries caller-supplied data for one instrumented operation.
// The same Payload value is visible to the instrumented block and to
// every subscriber; mutations made by the block before finish are seen by
// subscribers observing the finish notification.
type Payload map[string]any

// Payload keys written by the bus itself.
const (
	// ResultKey is where Instrument stores the block's return value.
	ResultKey = "result"

	// ErrorKey is where Instrument records the block's failure.
	ErrorKey = "error"
)

// Event is the record of one instrumented operation occurrence. It is
// created at instrumentation start, mutated only by its instrumenter, and
// immutable once finish is recorded.
type Event struct {
	name          string
	transactionID string
	payload       Payload
	startTime     time.Time
	endTime       time.Time
	finished      bool
	children      []string

	durationOnce sync.Once
	duration     time.Duration
}

// newEvent creates an event at instrumentation start.
func newEvent(name, transactionID string, payload Payload, start time.Time) *Event {
	return &Event{
		name:          name,
		transactionID: transactionID,
		payload:       payload,
		startTime:     start,
	}
}

// finish records the end of the instrumented operation. Called exactly
// once by the owning instrumenter.
func (e *Event) finish(end time.Time) {
	e.endTime = end
	e.finished = true
}

// addChild records a directly-nested event's transaction ID.
func (e *Event) addChild(transactionID string) {
	e.children = append(e.children, transactionID)
}

// Name returns the event name.
func (e *Event) Name() string {
	return e.name
}

// TransactionID returns the identifier correlating this event's start and
// finish notifications. It is unique within the originating execution
// context for the process lifetime.
func (e *Event) TransactionID() string {
	return e.transactionID
}

// Payload returns the payload supplied at instrumentation start,
// including any mutations made by the instrumented block.
func (e *Event) Payload() Payload {
	return e.payload
}

// StartTime returns when the instrumented operation began.
func (e *Event) StartTime() time.Time {
	return e.startTime
}

// EndTime returns when the instrumented operation finished. Zero before
// finish is recorded.
func (e *Event) EndTime() time.Time {
	return e.endTime
}

// Finished reports whether finish has been recorded.
func (e *Event) Finished() bool {
	return e.finished
}

// Duration returns the elapsed time between start and finish, computed
// once on first call. Returns ErrEventUnfinished before finish.
func (e *Event) Duration() (time.Duration, error) {
	if !e.finished {
		return 0, ErrEventUnfinished
	}
	e.durationOnce.Do(func() {
		e.duration = e.endTime.Sub(e.startTime)
	})
	return e.duration, nil
}

// Children returns the transaction IDs of events nested directly inside
// this one, in start order. The returned slice is a copy.
func (e *Event) Children() []string {
	if len(e.children) == 0 {
		return nil
	}
	out := make([]string, len(e.children))
	copy(out, e.children)
	return out
}

// Result returns the value the block stored under ResultKey, or nil.
func (e *Event) Result() any {
	return e.payload[ResultKey]
}

// Err returns the block failure recorded under ErrorKey, or nil.
func (e *Event) Err() error {
	if err, ok := e.payload[ErrorKey].(error); ok {
		return err
	}
	return nil
}
