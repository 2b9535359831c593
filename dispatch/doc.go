// Package dispatch executes subscriber deliveries with panic isolation.
//
// The bus hands each delivery to this package as an opaque Task. Two
// execution strategies are provided:
//
//   - Executor runs a task inline in the caller's goroutine, recovering
//     panics and capturing timing. Used for synchronous delivery.
//   - Async runs tasks on a bounded worker pool. Used for subscriptions
//     that opt into asynchronous delivery. Drain blocks until every task
//     enqueued before the call has been executed.
//
// A panicking task never takes down the process or its sibling tasks; the
// panic value and stack are captured in the Result and reported to the
// configured PanicHandler.
package dispatch
