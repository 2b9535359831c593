package beacon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/beacon/dispatch"
	"github.com/dshills/beacon/pattern"
)

// notification is one dispatch unit flowing through the registry.
// For instrumented operations the start notification carries a zero end
// time and a nil event; the finish notification carries the completed
// event. Raw Publish notifications carry zero times and no event.
type notification struct {
	name          string
	transactionID string
	payload       Payload
	start         time.Time
	end           time.Time
	event         *Event
}

// Fanout owns the subscription registry: it answers which subscriptions
// match an event name and delivers notifications to them.
//
// Fanout is safe for concurrent Publish, Subscribe, and Unsubscribe. A
// publish in progress dispatches against a snapshot of the subscriber
// set; subscriptions added mid-dispatch do not see the in-flight
// notification and removed ones may still receive it.
//
// Name-to-subscription matching is memoized per distinct name and
// invalidated when the registry changes, so hot paths with stable name
// sets match in one cache hit.
type Fanout struct {
	mu   sync.RWMutex
	subs []*Subscription
	byID map[string]*Subscription
	gen  atomic.Uint64
	// cache maps event name -> *matchEntry
	cache sync.Map

	executor  *dispatch.Executor
	async     *dispatch.Async
	asyncOnce sync.Once

	config config
	closed atomic.Bool

	// Stats
	published     atomic.Uint64
	delivered     atomic.Uint64
	dropped       atomic.Uint64
	handlerErrors atomic.Uint64
	handlerPanics atomic.Uint64
}

// matchEntry is a memoized match result, valid while gen matches the
// registry generation.
type matchEntry struct {
	gen  uint64
	subs []*Subscription
}

// NewFanout creates an empty subscription registry.
func NewFanout(opts ...Option) *Fanout {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Fanout{
		byID:   make(map[string]*Subscription),
		config: cfg,
	}

	f.executor = dispatch.NewExecutor()

	f.async = dispatch.NewAsync(
		dispatch.WithQueueSize(cfg.asyncQueueSize),
		dispatch.WithWorkerCount(cfg.asyncWorkerCount),
		dispatch.WithAsyncPanicHandler(func(recovered any, stack []byte) {
			f.handlerPanics.Add(1)
			if f.config.panicHandler != nil {
				f.config.panicHandler(recovered, stack)
			}
		}),
	)

	return f
}

// Binding is a subscription builder scoped to one pattern.
type Binding struct {
	fanout  *Fanout
	pattern pattern.Pattern
}

// Bind returns a builder scoped to the pattern. A nil pattern matches
// every event name.
func (f *Fanout) Bind(p pattern.Pattern) *Binding {
	return &Binding{fanout: f, pattern: p}
}

// Subscribe registers a handler on the binding's pattern.
func (b *Binding) Subscribe(h Handler, opts ...SubscriptionOption) (*Subscription, error) {
	return b.fanout.Subscribe(b.pattern, h, opts...)
}

// Subscribe registers a handler for event names matching the pattern.
// A nil pattern matches every name. The returned handle is used to
// unsubscribe. Safe to call concurrently with in-flight publishes.
func (f *Fanout) Subscribe(p pattern.Pattern, h Handler, opts ...SubscriptionOption) (*Subscription, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	switch h.(type) {
	case EventHandler, RawHandler:
	default:
		return nil, ErrInvalidHandler
	}
	if p == nil {
		p = pattern.All()
	}

	sub := newSubscription(p, h, opts...)

	if sub.config.Async {
		f.startAsync()
	}

	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.byID[sub.id] = sub
	f.gen.Add(1)
	f.mu.Unlock()

	return sub, nil
}

// Unsubscribe cancels and removes a subscription. Idempotent: removing a
// handle twice, or one that was never registered, returns false.
func (f *Fanout) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	sub.Cancel()

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.byID[sub.id]; !exists {
		return false
	}
	delete(f.byID, sub.id)
	for i, s := range f.subs {
		if s.id == sub.id {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			break
		}
	}
	f.gen.Add(1)
	return true
}

// Publish delivers a low-level raw notification, bypassing timing. Only
// raw-form subscribers receive it; Event-form subscribers fire solely on
// completed instrumentations.
//
// A failing subscriber never suppresses delivery to the remaining
// subscribers in the pass; all failures are joined into the returned
// error after every matching subscriber has been attempted.
func (f *Fanout) Publish(name string, payload Payload) error {
	if name == "" {
		return ErrEmptyName
	}
	if f.closed.Load() {
		return ErrClosed
	}
	return f.publish(notification{name: name, payload: payload})
}

// publishStart delivers the start notification for an instrumented
// operation.
func (f *Fanout) publishStart(ev *Event) error {
	return f.publish(notification{
		name:          ev.name,
		transactionID: ev.transactionID,
		payload:       ev.payload,
		start:         ev.startTime,
	})
}

// publishFinish delivers the finish notification for an instrumented
// operation.
func (f *Fanout) publishFinish(ev *Event) error {
	return f.publish(notification{
		name:          ev.name,
		transactionID: ev.transactionID,
		payload:       ev.payload,
		start:         ev.startTime,
		end:           ev.endTime,
		event:         ev,
	})
}

// publish dispatches a notification to every matching subscription.
func (f *Fanout) publish(note notification) error {
	subs := f.matching(note.name)
	if len(subs) == 0 {
		return nil
	}

	f.published.Add(1)

	var errs []error
	for _, sub := range subs {
		if !sub.shouldDeliver(note.name, note.payload) {
			continue
		}
		call := handlerCall(sub.handler, note)
		if call == nil {
			continue // handler shape does not receive this notification kind
		}

		if sub.config.Async {
			f.enqueue(sub, note.name, call)
			continue
		}

		result := f.executor.Run(call)
		if err := f.account(sub, note.name, result); err != nil {
			errs = append(errs, err)
		}
		if sub.config.Once && !result.Failed() {
			f.Unsubscribe(sub)
		}
	}

	return errors.Join(errs...)
}

// handlerCall builds the delivery closure for a handler and notification,
// or nil when the handler shape does not receive this notification kind.
func handlerCall(h Handler, note notification) dispatch.Task {
	switch handler := h.(type) {
	case EventHandler:
		if note.event == nil {
			return nil
		}
		return func() error { return handler.HandleEvent(note.event) }
	case RawHandler:
		return func() error {
			return handler.HandleRaw(note.name, note.start, note.end, note.transactionID, note.payload)
		}
	default:
		return nil
	}
}

// enqueue hands a delivery to the async worker pool.
func (f *Fanout) enqueue(sub *Subscription, name string, call dispatch.Task) {
	task := func() error {
		err := call()
		if err != nil {
			f.handlerErrors.Add(1)
			return &SubscriberError{SubscriptionID: sub.id, EventName: name, Err: err}
		}
		f.delivered.Add(1)
		if sub.config.Once {
			f.Unsubscribe(sub)
		}
		return nil
	}

	if err := f.async.Enqueue(task); err != nil {
		f.dropped.Add(1)
	}
}

// account updates stats for a synchronous delivery and converts a failed
// result into the error surfaced to the publisher.
func (f *Fanout) account(sub *Subscription, name string, result dispatch.Result) error {
	switch {
	case result.Panicked:
		f.handlerPanics.Add(1)
		if f.config.panicHandler != nil {
			f.config.panicHandler(result.PanicValue, result.PanicStack)
		}
		return &PanicError{
			SubscriptionID: sub.id,
			EventName:      name,
			Value:          result.PanicValue,
			Stack:          result.PanicStack,
		}
	case result.Err != nil:
		f.handlerErrors.Add(1)
		return &SubscriberError{SubscriptionID: sub.id, EventName: name, Err: result.Err}
	default:
		f.delivered.Add(1)
		return nil
	}
}

// matching returns the subscriptions whose pattern accepts the name,
// using the per-name cache when the registry has not changed.
func (f *Fanout) matching(name string) []*Subscription {
	gen := f.gen.Load()
	if v, ok := f.cache.Load(name); ok {
		if entry := v.(*matchEntry); entry.gen == gen {
			return entry.subs
		}
	}

	f.mu.RLock()
	gen = f.gen.Load()
	var matched []*Subscription
	for _, sub := range f.subs {
		if sub.pattern.Matches(name) {
			matched = append(matched, sub)
		}
	}
	f.mu.RUnlock()

	f.cache.Store(name, &matchEntry{gen: gen, subs: matched})
	return matched
}

// startAsync starts the async worker pool on first use.
func (f *Fanout) startAsync() {
	f.asyncOnce.Do(func() {
		_ = f.async.Start()
	})
}

// Wait blocks until every asynchronous delivery enqueued before the call
// has been executed. For a registry with only synchronous subscribers it
// returns immediately.
func (f *Fanout) Wait() {
	f.async.Drain()
}

// Close drains and stops the async worker pool. Further publishes return
// ErrClosed; subscriptions remain registered.
func (f *Fanout) Close(ctx context.Context) error {
	if f.closed.Swap(true) {
		return nil
	}
	if err := f.async.Stop(ctx); err != nil && !errors.Is(err, dispatch.ErrNotRunning) {
		return err
	}
	return nil
}

// Count returns the number of registered subscriptions.
func (f *Fanout) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.byID)
}

// CountActive returns the number of active subscriptions.
func (f *Fanout) CountActive() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	count := 0
	for _, sub := range f.byID {
		if sub.IsActive() {
			count++
		}
	}
	return count
}

// Stats returns registry statistics.
func (f *Fanout) Stats() Stats {
	asyncStats := f.async.Stats()
	return Stats{
		Published:           f.published.Load(),
		Delivered:           f.delivered.Load(),
		Dropped:             f.dropped.Load(),
		HandlerErrors:       f.handlerErrors.Load(),
		HandlerPanics:       f.handlerPanics.Load(),
		ActiveSubscriptions: f.CountActive(),
		QueueDepth:          asyncStats.QueueDepth,
	}
}

// Stats contains counters for a Fanout.
type Stats struct {
	// Published is the number of notifications with at least one match.
	Published uint64

	// Delivered is the number of successful handler deliveries.
	Delivered uint64

	// Dropped is the number of async deliveries rejected by a full queue.
	Dropped uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// ActiveSubscriptions is the current number of active subscriptions.
	ActiveSubscriptions int

	// QueueDepth is the current async queue depth.
	QueueDepth int
}
