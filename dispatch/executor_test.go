package dispatch

import (
	"errors"
	"strings"
	"testing"
)

func TestExecutor_Success(t *testing.T) {
	e := NewExecutor()

	ran := false
	result := e.Run(func() error {
		ran = true
		return nil
	})

	if !ran {
		t.Fatal("task did not run")
	}
	if result.Failed() {
		t.Errorf("unexpected failure: %+v", result)
	}
	if result.Duration < 0 {
		t.Errorf("negative duration: %v", result.Duration)
	}
}

func TestExecutor_Error(t *testing.T) {
	e := NewExecutor()
	wantErr := errors.New("handler failed")

	result := e.Run(func() error { return wantErr })

	if !result.Failed() {
		t.Error("expected failure")
	}
	if !errors.Is(result.Err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, result.Err)
	}
	if result.Panicked {
		t.Error("error should not be reported as panic")
	}
}

func TestExecutor_Panic(t *testing.T) {
	var handlerValue any
	e := NewExecutor(WithPanicHandler(func(recovered any, stack []byte) {
		handlerValue = recovered
		if len(stack) == 0 {
			t.Error("expected non-empty stack")
		}
	}))

	result := e.Run(func() error { panic("boom") })

	if !result.Panicked {
		t.Fatal("expected Panicked")
	}
	if result.PanicValue != "boom" {
		t.Errorf("expected panic value 'boom', got %v", result.PanicValue)
	}
	if handlerValue != "boom" {
		t.Errorf("panic handler got %v", handlerValue)
	}
	if !strings.Contains(string(result.PanicStack), "goroutine") {
		t.Error("expected stack trace in result")
	}
}

func TestExecutor_PanicHandlerPanic(t *testing.T) {
	e := NewExecutor(WithPanicHandler(func(any, []byte) {
		panic("handler panic")
	}))

	// Must not escape to the caller.
	result := e.Run(func() error { panic("boom") })
	if !result.Panicked {
		t.Error("expected Panicked")
	}
}
