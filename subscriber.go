package beacon

import "time"

// Handler is the capability a subscriber registers with the bus. Exactly
// two shapes exist, chosen at subscribe time:
//
//   - EventHandler fires once per completed instrumentation, with the
//     finished Event.
//   - RawHandler fires twice per instrumentation - at start with a zero
//     end time, and again at finish - and also receives low-level Publish
//     notifications that bypass timing.
//
// Subscribe rejects any value that is neither shape with
// ErrInvalidHandler.
type Handler any

// EventHandler receives the completed Event after finish is recorded.
type EventHandler interface {
	HandleEvent(e *Event) error
}

// EventFunc adapts a function to an EventHandler.
type EventFunc func(e *Event) error

// HandleEvent implements EventHandler.
func (f EventFunc) HandleEvent(e *Event) error {
	return f(e)
}

// RawHandler receives low-level notifications. For instrumented
// operations it is invoked at start (zero end time) and at finish; the
// payload reference is the same in both calls, so finish observers see
// the block's mutations. For raw Publish calls both times are zero and
// the transaction ID is empty.
type RawHandler interface {
	HandleRaw(name string, start, end time.Time, transactionID string, payload Payload) error
}

// RawFunc adapts a function to a RawHandler.
type RawFunc func(name string, start, end time.Time, transactionID string, payload Payload) error

// HandleRaw implements RawHandler.
func (f RawFunc) HandleRaw(name string, start, end time.Time, transactionID string, payload Payload) error {
	return f(name, start, end, transactionID, payload)
}

// FilterFunc is a per-subscription predicate evaluated before delivery.
// Return true to deliver the notification.
type FilterFunc func(name string, payload Payload) bool
