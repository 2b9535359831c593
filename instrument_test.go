package beacon

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/beacon/pattern"
)

// rawRecord captures one raw notification for assertions.
type rawRecord struct {
	name    string
	start   time.Time
	end     time.Time
	id      string
	payload Payload
}

// rawRecorder collects raw notifications in delivery order.
type rawRecorder struct {
	mu      sync.Mutex
	records []rawRecord
}

func (r *rawRecorder) handler() RawFunc {
	return func(name string, start, end time.Time, id string, payload Payload) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.records = append(r.records, rawRecord{name, start, end, id, payload})
		return nil
	}
}

func (r *rawRecorder) all() []rawRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]rawRecord, len(r.records))
	copy(out, r.records)
	return out
}

func TestInstrument_StartFinishPair(t *testing.T) {
	n := New()
	rec := &rawRecorder{}
	n.Subscribe(nil, rec.handler())

	err := n.Instrument(context.Background(), "render", Payload{}, func(context.Context, Payload) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Instrument() failed: %v", err)
	}

	records := rec.all()
	if len(records) != 2 {
		t.Fatalf("expected start+finish, got %d notifications", len(records))
	}

	start, finish := records[0], records[1]
	if start.id == "" || start.id != finish.id {
		t.Errorf("transaction ids do not pair: %q vs %q", start.id, finish.id)
	}
	if !start.end.IsZero() {
		t.Error("start notification should carry a zero end time")
	}
	if finish.end.IsZero() {
		t.Error("finish notification should carry an end time")
	}
	if finish.end.Before(finish.start) {
		t.Error("end precedes start")
	}
}

func TestInstrument_FinishFiresOnBlockError(t *testing.T) {
	n := New()
	rec := &rawRecorder{}
	n.Subscribe(nil, rec.handler())

	boom := errors.New("block failed")
	err := n.Instrument(context.Background(), "x", Payload{}, func(context.Context, Payload) error {
		return boom
	})

	// The original failure propagates unchanged.
	if !errors.Is(err, boom) {
		t.Errorf("expected block error, got %v", err)
	}

	records := rec.all()
	if len(records) != 2 {
		t.Fatalf("expected start+finish despite failure, got %d", len(records))
	}
	if records[0].id != records[1].id {
		t.Error("finish not matched to start by transaction id")
	}

	// The failure is recorded in the payload seen by finish observers.
	if got, ok := records[1].payload[ErrorKey].(error); !ok || !errors.Is(got, boom) {
		t.Errorf("payload[%q] = %v, want block error", ErrorKey, records[1].payload[ErrorKey])
	}
}

func TestInstrument_FinishFiresOnPanic(t *testing.T) {
	n := New()
	rec := &rawRecorder{}
	n.Subscribe(nil, rec.handler())

	func() {
		defer func() {
			if r := recover(); r != "block boom" {
				t.Errorf("expected panic to propagate, recovered %v", r)
			}
		}()
		n.Instrument(context.Background(), "x", Payload{}, func(context.Context, Payload) error {
			panic("block boom")
		})
	}()

	records := rec.all()
	if len(records) != 2 {
		t.Fatalf("expected start+finish despite panic, got %d", len(records))
	}
}

func TestInstrument_EventSubscriberFiresOncePerCall(t *testing.T) {
	n := New()

	var events []*Event
	n.Subscribe(pattern.Exact("x"), EventFunc(func(e *Event) error {
		events = append(events, e)
		return nil
	}))

	boom := errors.New("err")
	err := n.Instrument(context.Background(), "x", Payload{}, func(context.Context, Payload) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected block error, got %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("event subscriber fired %d times, want 1", len(events))
	}
	if !errors.Is(events[0].Err(), boom) {
		t.Errorf("event did not record the failure: %v", events[0].Err())
	}
}

func TestInstrument_Nesting(t *testing.T) {
	n := New()
	rec := &rawRecorder{}
	n.Subscribe(nil, rec.handler())

	var outerEvent, innerEvent *Event
	n.Subscribe(nil, EventFunc(func(e *Event) error {
		switch e.Name() {
		case "outer":
			outerEvent = e
		case "inner":
			innerEvent = e
		}
		return nil
	}))

	err := n.Instrument(context.Background(), "outer", Payload{}, func(ctx context.Context, _ Payload) error {
		return n.Instrument(ctx, "inner", Payload{}, func(context.Context, Payload) error {
			return nil
		})
	})
	if err != nil {
		t.Fatalf("Instrument() failed: %v", err)
	}

	records := rec.all()
	if len(records) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(records))
	}

	// Delivery order: start(outer), start(inner), finish(inner), finish(outer).
	wantOrder := []string{"outer", "inner", "inner", "outer"}
	for i, want := range wantOrder {
		if records[i].name != want {
			t.Errorf("notification %d: got %q, want %q", i, records[i].name, want)
		}
	}

	if records[0].id == records[1].id {
		t.Error("nested call reused the outer transaction id")
	}
	if records[1].id != records[2].id || records[0].id != records[3].id {
		t.Error("start/finish pairs not matched by transaction id")
	}

	// Both ids share the instrumenter prefix (same logical context).
	prefix := records[0].id[:strings.LastIndex(records[0].id, "-")]
	if !strings.HasPrefix(records[1].id, prefix) {
		t.Error("nested transaction id from a different instrumenter")
	}

	// The outer event recorded the inner as a child.
	if outerEvent == nil || innerEvent == nil {
		t.Fatal("event subscriber missed a finish")
	}
	children := outerEvent.Children()
	if len(children) != 1 || children[0] != innerEvent.TransactionID() {
		t.Errorf("outer children = %v, want [%s]", children, innerEvent.TransactionID())
	}
	if innerEvent.Children() != nil {
		t.Errorf("inner children = %v, want none", innerEvent.Children())
	}
}

func TestInstrument_PayloadMutationVisible(t *testing.T) {
	n := New()

	var finished *Event
	n.Subscribe(pattern.Exact("x"), EventFunc(func(e *Event) error {
		finished = e
		return nil
	}))

	payload := Payload{}
	err := n.Instrument(context.Background(), "x", payload, func(_ context.Context, p Payload) error {
		p["result"] = 42
		return nil
	})
	if err != nil {
		t.Fatalf("Instrument() failed: %v", err)
	}

	if finished == nil {
		t.Fatal("finish not delivered")
	}
	if finished.Payload()["result"] != 42 {
		t.Errorf("payload mutation not visible: %v", finished.Payload())
	}
	// Identity preserved: same map, not a copy.
	payload["after"] = true
	if finished.Payload()["after"] != true {
		t.Error("payload identity not preserved from start to finish")
	}
}

func TestInstrument_GenericResult(t *testing.T) {
	n := New()

	var finished *Event
	n.Subscribe(pattern.Exact("render"), EventFunc(func(e *Event) error {
		finished = e
		return nil
	}))

	got, err := Instrument(context.Background(), n, "render", Payload{"extra": "info"},
		func(context.Context, Payload) (int, error) {
			return 42, nil
		})
	if err != nil {
		t.Fatalf("Instrument() failed: %v", err)
	}
	if got != 42 {
		t.Errorf("Instrument() = %d, want 42", got)
	}

	if finished == nil {
		t.Fatal("finish not delivered")
	}
	if finished.Name() != "render" {
		t.Errorf("Name() = %q, want render", finished.Name())
	}
	if finished.Payload()["extra"] != "info" {
		t.Error("original payload entry lost")
	}
	if finished.Result() != 42 {
		t.Errorf("Result() = %v, want 42", finished.Result())
	}
	d, err := finished.Duration()
	if err != nil {
		t.Fatalf("Duration() failed: %v", err)
	}
	if d < 0 {
		t.Errorf("Duration() = %v, want >= 0", d)
	}
}

func TestInstrument_GenericError(t *testing.T) {
	n := New()

	boom := errors.New("nope")
	got, err := Instrument(context.Background(), n, "x", nil,
		func(context.Context, Payload) (string, error) {
			return "", boom
		})
	if !errors.Is(err, boom) {
		t.Errorf("expected block error, got %v", err)
	}
	if got != "" {
		t.Errorf("expected zero value, got %q", got)
	}
}

func TestInstrument_Validation(t *testing.T) {
	n := New()

	if err := n.Instrument(context.Background(), "", Payload{}, func(context.Context, Payload) error { return nil }); err != ErrEmptyName {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
	if err := n.Instrument(context.Background(), "x", Payload{}, nil); err != ErrNilBlock {
		t.Errorf("expected ErrNilBlock, got %v", err)
	}
}

func TestInstrument_NilPayload(t *testing.T) {
	n := New()

	err := n.Instrument(context.Background(), "x", nil, func(_ context.Context, p Payload) error {
		if p == nil {
			t.Error("expected non-nil payload")
		}
		p["k"] = "v"
		return nil
	})
	if err != nil {
		t.Fatalf("Instrument() failed: %v", err)
	}
}

func TestInstrument_SeparateContextsSeparateInstrumenters(t *testing.T) {
	n := New()
	rec := &rawRecorder{}
	n.Subscribe(nil, rec.handler())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Instrument(context.Background(), "work", Payload{}, func(context.Context, Payload) error {
				return nil
			})
		}()
	}
	wg.Wait()

	ids := make(map[string]int)
	for _, r := range rec.all() {
		ids[r.id]++
	}
	if len(ids) != 4 {
		t.Errorf("expected 4 distinct transaction ids, got %d", len(ids))
	}
	for id, count := range ids {
		if count != 2 {
			t.Errorf("transaction %s delivered %d notifications, want 2", id, count)
		}
	}
}

func TestInstrument_SubscriberFailureSurfacedOnSuccess(t *testing.T) {
	n := New()

	subErr := errors.New("subscriber failed")
	n.Subscribe(nil, EventFunc(func(*Event) error { return subErr }))

	err := n.Instrument(context.Background(), "x", Payload{}, func(context.Context, Payload) error {
		return nil
	})
	if !errors.Is(err, subErr) {
		t.Errorf("expected subscriber failure surfaced, got %v", err)
	}
}

func TestInstrumenterFromContext(t *testing.T) {
	n := New()
	other := New()

	if _, ok := InstrumenterFromContext(context.Background(), n); ok {
		t.Error("background context should carry no instrumenter")
	}

	n.Instrument(context.Background(), "x", Payload{}, func(ctx context.Context, _ Payload) error {
		inst, ok := InstrumenterFromContext(ctx, n)
		if !ok {
			t.Error("block context should carry the instrumenter")
		}
		if inst.Depth() != 1 {
			t.Errorf("Depth() = %d, want 1", inst.Depth())
		}
		if _, ok := InstrumenterFromContext(ctx, other); ok {
			t.Error("instrumenter leaked across notifiers")
		}
		return nil
	})
}
