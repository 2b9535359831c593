package beacon

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/beacon/pattern"
)

// SubscriptionState represents the state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription receives notifications.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStatePaused means delivery is temporarily suspended.
	SubscriptionStatePaused

	// SubscriptionStateCancelled means the subscription is permanently removed.
	SubscriptionStateCancelled
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStatePaused:
		return "paused"
	case SubscriptionStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// SubscriptionConfig contains configuration for a subscription.
type SubscriptionConfig struct {
	// Filter is an optional predicate; notifications are delivered only
	// if Filter returns true.
	Filter FilterFunc

	// Async delivers notifications on the fanout's worker pool instead
	// of the publisher's goroutine.
	Async bool

	// Once auto-cancels the subscription after its first delivery.
	Once bool
}

// SubscriptionOption configures a subscription at subscribe time.
type SubscriptionOption func(*SubscriptionConfig)

// WithFilter sets a delivery predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithAsync delivers notifications asynchronously on the fanout's worker
// pool. Delivery order relative to other subscribers is not guaranteed,
// and notifications may be dropped when the queue is full.
func WithAsync() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Async = true
	}
}

// WithOnce auto-cancels the subscription after the first delivery.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

// Subscription is the handle returned by Subscribe, usable to pause,
// resume, or unsubscribe.
type Subscription struct {
	id      string
	pattern pattern.Pattern
	handler Handler
	config  SubscriptionConfig
	state   atomic.Int32
}

// newSubscription creates an active subscription.
func newSubscription(p pattern.Pattern, h Handler, opts ...SubscriptionOption) *Subscription {
	var config SubscriptionConfig
	for _, opt := range opts {
		opt(&config)
	}

	s := &Subscription{
		id:      uuid.NewString(),
		pattern: p,
		handler: h,
		config:  config,
	}
	s.state.Store(int32(SubscriptionStateActive))
	return s
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Pattern returns the subscribed name pattern.
func (s *Subscription) Pattern() pattern.Pattern {
	return s.pattern
}

// Config returns the subscription configuration.
func (s *Subscription) Config() SubscriptionConfig {
	return s.config
}

// State returns the current subscription state.
func (s *Subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// IsActive returns true if the subscription can receive notifications.
func (s *Subscription) IsActive() bool {
	return s.State() == SubscriptionStateActive
}

// Pause temporarily suspends delivery. No-op unless currently active.
func (s *Subscription) Pause() {
	s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStatePaused))
}

// Resume restarts delivery after a pause. No-op unless currently paused.
func (s *Subscription) Resume() {
	s.state.CompareAndSwap(int32(SubscriptionStatePaused), int32(SubscriptionStateActive))
}

// Cancel permanently stops delivery. Cancelled subscriptions cannot be
// resumed; use Fanout.Unsubscribe to also remove them from the registry.
func (s *Subscription) Cancel() {
	s.state.Store(int32(SubscriptionStateCancelled))
}

// isCancelled reports whether the subscription was cancelled.
func (s *Subscription) isCancelled() bool {
	return s.State() == SubscriptionStateCancelled
}

// shouldDeliver reports whether a notification passes the subscription's
// state and filter checks.
func (s *Subscription) shouldDeliver(name string, payload Payload) bool {
	if !s.IsActive() {
		return false
	}
	if s.config.Filter != nil && !s.config.Filter(name, payload) {
		return false
	}
	return true
}
