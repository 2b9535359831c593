package beacon

import (
	"errors"
	"strings"
	"testing"
)

func TestSubscriberError(t *testing.T) {
	inner := errors.New("handler failed")
	err := &SubscriberError{SubscriptionID: "sub-1", EventName: "render", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("Unwrap should expose the inner error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "sub-1") || !strings.Contains(msg, "render") {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestPanicError(t *testing.T) {
	err := &PanicError{SubscriptionID: "sub-1", EventName: "render", Value: "boom"}

	if !errors.Is(err, ErrSubscriberPanic) {
		t.Error("PanicError should match ErrSubscriberPanic")
	}
	if !strings.Contains(err.Error(), "sub-1") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}
