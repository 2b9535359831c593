package beacon

import "errors"

// Sentinel errors for the instrumentation bus.
var (
	// ErrEventUnfinished is returned when querying derived fields of an
	// event before its finish has been recorded.
	ErrEventUnfinished = errors.New("event is not finished")

	// ErrEmptyName is returned when publishing or instrumenting with an
	// empty event name.
	ErrEmptyName = errors.New("event name cannot be empty")

	// ErrNilHandler is returned when subscribing with a nil handler.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidHandler is returned when subscribing with a value that is
	// neither an EventHandler nor a RawHandler.
	ErrInvalidHandler = errors.New("handler must be an EventHandler or RawHandler")

	// ErrNilBlock is returned when instrumenting a nil block.
	ErrNilBlock = errors.New("instrumented block cannot be nil")

	// ErrSubscriberPanic is matched by errors.Is against PanicError.
	ErrSubscriberPanic = errors.New("subscriber panicked")

	// ErrClosed is returned when operating on a closed notifier.
	ErrClosed = errors.New("notifier is closed")
)

// SubscriberError wraps an error returned by a subscriber during dispatch
// with the subscription it came from.
type SubscriberError struct {
	// SubscriptionID is the ID of the failing subscription.
	SubscriptionID string

	// EventName is the event name being delivered.
	EventName string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SubscriberError) Error() string {
	return "subscriber " + e.SubscriptionID + " failed for event " + e.EventName + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *SubscriberError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic raised by a subscriber as an error.
type PanicError struct {
	// SubscriptionID is the ID of the panicking subscription.
	SubscriptionID string

	// EventName is the event name being delivered.
	EventName string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace captured at recovery.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return "subscriber " + e.SubscriptionID + " panicked for event " + e.EventName
}

// Is allows errors.Is to match PanicError with ErrSubscriberPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrSubscriberPanic
}
