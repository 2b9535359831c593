// Package beacon is an in-process instrumentation bus: code announces
// that a named, timed operation occurred, carrying a payload and
// optionally a result, and independently-registered subscribers receive
// those announcements filtered by name pattern.
//
// # Architecture
//
//	                ┌──────────────────────────────────┐
//	                │             Notifier              │
//	                │  publish / subscribe / instrument │
//	                └──────────────────────────────────┘
//	                      │                      │
//	                      ▼                      ▼
//	        ┌─────────────────────┐   ┌─────────────────────┐
//	        │       Fanout        │   │    Instrumenter      │
//	        │  - pattern matching │   │  - per-context,      │
//	        │  - snapshot dispatch│   │    carried in ctx    │
//	        │  - sync/async       │   │  - nesting stack     │
//	        │    delivery         │   │  - transaction ids   │
//	        └─────────────────────┘   └─────────────────────┘
//
// # Instrumenting
//
// Instrument wraps a block of work. A start notification fires before the
// block runs and a finish notification fires on every exit path, carrying
// the same payload object so subscribers see the block's mutations:
//
//	err := n.Instrument(ctx, "render.action_view", beacon.Payload{"view": "index"},
//	    func(ctx context.Context, p beacon.Payload) error {
//	        p["rows"] = 42
//	        return render(ctx)
//	    })
//
// The generic form returns the block's value and records it in the
// payload under beacon.ResultKey:
//
//	html, err := beacon.Instrument(ctx, n, "render", nil,
//	    func(ctx context.Context, p beacon.Payload) (string, error) {
//	        return render(ctx)
//	    })
//
// Nested Instrument calls on the same context chain get their own
// transaction IDs and nest strictly: start(A), start(B), finish(B),
// finish(A). The outer event records the inner's transaction ID among its
// children.
//
// # Subscribing
//
// Subscribers register one of two handler shapes. EventFunc fires once
// per completed instrumentation with the finished Event; RawFunc fires at
// both start (zero end time) and finish, and additionally receives
// low-level Publish notifications:
//
//	sub, _ := n.Subscribe(pattern.Prefix("render"),
//	    beacon.EventFunc(func(e *beacon.Event) error {
//	        d, _ := e.Duration()
//	        log.Printf("%s took %v", e.Name(), d)
//	        return nil
//	    }))
//	defer n.Unsubscribe(sub)
//
// Patterns are exact, prefix, glob, or regular-expression rules from the
// pattern subpackage; a nil pattern matches every name.
//
// # Delivery
//
// Delivery is synchronous in the publisher's goroutine by default. A
// subscription created with WithAsync is delivered from a bounded worker
// pool instead; Wait drains deliveries pending at the moment of the call.
// A failing or panicking subscriber never suppresses delivery to the
// remaining subscribers in the same pass.
//
// A publish in progress dispatches against a snapshot of the subscriber
// set, so concurrent Subscribe and Unsubscribe calls are safe but take
// effect on subsequent publishes.
package beacon
