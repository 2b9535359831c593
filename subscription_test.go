package beacon

import (
	"testing"
	"time"

	"github.com/dshills/beacon/pattern"
)

func noopRaw() RawFunc {
	return func(string, time.Time, time.Time, string, Payload) error { return nil }
}

func TestSubscription_Lifecycle(t *testing.T) {
	sub := newSubscription(pattern.Exact("render"), noopRaw())

	if sub.ID() == "" {
		t.Error("expected non-empty ID")
	}
	if sub.State() != SubscriptionStateActive {
		t.Errorf("initial state = %v, want active", sub.State())
	}
	if !sub.IsActive() {
		t.Error("expected active subscription")
	}

	sub.Pause()
	if sub.State() != SubscriptionStatePaused {
		t.Errorf("state after Pause = %v, want paused", sub.State())
	}

	sub.Resume()
	if !sub.IsActive() {
		t.Error("expected active after Resume")
	}

	sub.Cancel()
	if !sub.isCancelled() {
		t.Error("expected cancelled after Cancel")
	}

	// Cancelled subscriptions cannot be resumed.
	sub.Resume()
	if sub.IsActive() {
		t.Error("cancelled subscription resumed")
	}
}

func TestSubscription_PauseOnlyWhenActive(t *testing.T) {
	sub := newSubscription(pattern.All(), noopRaw())
	sub.Cancel()
	sub.Pause()
	if sub.State() != SubscriptionStateCancelled {
		t.Error("Pause changed a cancelled subscription")
	}
}

func TestSubscription_ShouldDeliver(t *testing.T) {
	sub := newSubscription(pattern.All(), noopRaw(),
		WithFilter(FilterPayloadKey("wanted")))

	if sub.shouldDeliver("x", Payload{}) {
		t.Error("filter should reject payload without key")
	}
	if !sub.shouldDeliver("x", Payload{"wanted": 1}) {
		t.Error("filter should accept payload with key")
	}

	sub.Pause()
	if sub.shouldDeliver("x", Payload{"wanted": 1}) {
		t.Error("paused subscription should not deliver")
	}
}

func TestSubscription_UniqueIDs(t *testing.T) {
	a := newSubscription(pattern.All(), noopRaw())
	b := newSubscription(pattern.All(), noopRaw())
	if a.ID() == b.ID() {
		t.Error("subscription IDs should be unique")
	}
}

func TestSubscriptionState_String(t *testing.T) {
	tests := []struct {
		state SubscriptionState
		want  string
	}{
		{SubscriptionStateActive, "active"},
		{SubscriptionStatePaused, "paused"},
		{SubscriptionStateCancelled, "cancelled"},
		{SubscriptionState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
