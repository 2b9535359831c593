package beacon

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/beacon/pattern"
)

func TestDefault_LazyCreation(t *testing.T) {
	SetDefault(nil)
	t.Cleanup(func() { SetDefault(nil) })

	n := Default()
	if n == nil {
		t.Fatal("Default() returned nil")
	}
	if Default() != n {
		t.Error("Default() should return the same instance")
	}
}

func TestDefault_Swap(t *testing.T) {
	SetDefault(nil)
	t.Cleanup(func() { SetDefault(nil) })

	replacement := New()
	SetDefault(replacement)
	if Default() != replacement {
		t.Error("SetDefault did not replace the shared instance")
	}
}

func TestDefault_PackageLevelHelpers(t *testing.T) {
	SetDefault(New())
	t.Cleanup(func() { SetDefault(nil) })

	var count atomic.Int32
	sub, err := Subscribe(pattern.Exact("render"), RawFunc(func(string, time.Time, time.Time, string, Payload) error {
		count.Add(1)
		return nil
	}))
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	if err := Publish("render", Payload{}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	if err := InstrumentBlock(context.Background(), "render", nil, func(context.Context, Payload) error {
		return nil
	}); err != nil {
		t.Fatalf("InstrumentBlock() failed: %v", err)
	}
	Wait()

	// One raw publish plus start+finish from the instrumentation.
	if got := count.Load(); got != 3 {
		t.Errorf("expected 3 deliveries, got %d", got)
	}

	if !Unsubscribe(sub) {
		t.Error("Unsubscribe() = false, want true")
	}
}

func TestDefault_ConcurrentAccess(t *testing.T) {
	SetDefault(nil)
	t.Cleanup(func() { SetDefault(nil) })

	var wg sync.WaitGroup
	instances := make([]*Notifier, 8)
	for i := range instances {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			instances[i] = Default()
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(instances); i++ {
		if instances[i] != instances[0] {
			t.Fatal("concurrent Default() calls returned different instances")
		}
	}
}
