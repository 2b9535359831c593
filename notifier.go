package beacon

import (
	"context"

	"github.com/dshills/beacon/pattern"
)

// Notifier is the façade combining a Fanout registry with per-context
// instrumenters. It is the primary entry point for both publishing and
// subscribing.
//
// Callers needing isolation construct their own Notifier with New;
// small programs may use the process-wide Default instead.
type Notifier struct {
	fanout *Fanout
}

// New creates a Notifier with its own subscription registry.
func New(opts ...Option) *Notifier {
	return &Notifier{fanout: NewFanout(opts...)}
}

// Fanout returns the notifier's subscription registry.
func (n *Notifier) Fanout() *Fanout {
	return n.fanout
}

// Publish delivers a low-level raw notification, bypassing timing.
func (n *Notifier) Publish(name string, payload Payload) error {
	return n.fanout.Publish(name, payload)
}

// Subscribe registers a handler for event names matching the pattern.
// A nil pattern matches every name.
func (n *Notifier) Subscribe(p pattern.Pattern, h Handler, opts ...SubscriptionOption) (*Subscription, error) {
	return n.fanout.Subscribe(p, h, opts...)
}

// Bind returns a subscription builder scoped to the pattern.
func (n *Notifier) Bind(p pattern.Pattern) *Binding {
	return n.fanout.Bind(p)
}

// Unsubscribe cancels and removes a subscription. Idempotent.
func (n *Notifier) Unsubscribe(sub *Subscription) bool {
	return n.fanout.Unsubscribe(sub)
}

// Instrument runs block as a named, timed operation. It publishes a start
// notification, executes the block, and publishes a finish notification
// on every exit path - normal return, block error, or panic. A block
// error is recorded in the payload under ErrorKey and propagated
// unchanged to the caller after finish has been published.
//
// A nil payload is replaced with an empty one. The block receives a
// derived context carrying the instrumenter, so nested Instrument calls
// on that context get their own transaction IDs and nest correctly.
func (n *Notifier) Instrument(ctx context.Context, name string, payload Payload, block BlockFunc) error {
	if name == "" {
		return ErrEmptyName
	}
	if block == nil {
		return ErrNilBlock
	}
	if payload == nil {
		payload = Payload{}
	}

	inst, ctx := n.instrumenter(ctx)
	return inst.instrument(ctx, name, payload, block)
}

// Wait blocks until all asynchronous deliveries pending at the moment of
// the call have been executed. With only synchronous subscribers it
// returns immediately.
func (n *Notifier) Wait() {
	n.fanout.Wait()
}

// Close drains and stops the notifier's async delivery machinery.
func (n *Notifier) Close(ctx context.Context) error {
	return n.fanout.Close(ctx)
}

// Stats returns registry statistics.
func (n *Notifier) Stats() Stats {
	return n.fanout.Stats()
}
