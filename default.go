package beacon

import (
	"context"
	"sync"

	"github.com/dshills/beacon/pattern"
)

// The process-wide default notifier: lazily created on first access,
// alive for the process lifetime, swappable wholesale by whoever controls
// startup or test setup. Code needing isolation should construct its own
// Notifier with New instead of relying on the shared instance.

var (
	defaultMu       sync.RWMutex
	defaultNotifier *Notifier
)

// Default returns the shared process-wide Notifier, creating it on first
// access.
func Default() *Notifier {
	defaultMu.RLock()
	n := defaultNotifier
	defaultMu.RUnlock()
	if n != nil {
		return n
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultNotifier == nil {
		defaultNotifier = New()
	}
	return defaultNotifier
}

// SetDefault replaces the shared Notifier. Passing nil resets it so the
// next Default call creates a fresh instance.
func SetDefault(n *Notifier) {
	defaultMu.Lock()
	defaultNotifier = n
	defaultMu.Unlock()
}

// Publish delivers a raw notification on the default notifier.
func Publish(name string, payload Payload) error {
	return Default().Publish(name, payload)
}

// Subscribe registers a handler on the default notifier.
func Subscribe(p pattern.Pattern, h Handler, opts ...SubscriptionOption) (*Subscription, error) {
	return Default().Subscribe(p, h, opts...)
}

// Unsubscribe removes a subscription from the default notifier.
func Unsubscribe(sub *Subscription) bool {
	return Default().Unsubscribe(sub)
}

// InstrumentBlock runs block under instrumentation on the default
// notifier.
func InstrumentBlock(ctx context.Context, name string, payload Payload, block BlockFunc) error {
	return Default().Instrument(ctx, name, payload, block)
}

// Wait drains pending asynchronous deliveries on the default notifier.
func Wait() {
	Default().Wait()
}
