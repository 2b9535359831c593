package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Async executes tasks on a bounded worker pool.
// It provides bounded queuing, graceful shutdown, and a Drain operation
// that blocks until all enqueued work has been executed.
type Async struct {
	// Configuration
	queueSize   int
	workerCount int

	// State
	mu      sync.Mutex // protects queue creation/destruction and pending
	cond    *sync.Cond // signalled when pending reaches zero
	pending int        // tasks enqueued but not yet finished
	queue   chan Task
	running atomic.Bool
	wg      sync.WaitGroup

	executor *Executor

	// Stats
	enqueued    atomic.Uint64
	executed    atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	dropped     atomic.Uint64
	totalTimeNs atomic.Int64
}

// NewAsync creates an asynchronous dispatcher.
func NewAsync(opts ...AsyncOption) *Async {
	a := &Async{
		queueSize:   4096,
		workerCount: 4,
		executor:    NewExecutor(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// AsyncOption configures an Async dispatcher.
type AsyncOption func(*Async)

// WithQueueSize sets the task queue capacity.
func WithQueueSize(size int) AsyncOption {
	return func(a *Async) {
		if size > 0 {
			a.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) AsyncOption {
	return func(a *Async) {
		if count > 0 {
			a.workerCount = count
		}
	}
}

// WithAsyncPanicHandler sets the panic handler for pooled execution.
func WithAsyncPanicHandler(h PanicHandler) AsyncOption {
	return func(a *Async) {
		a.executor = NewExecutor(WithPanicHandler(h))
	}
}

// Start starts the worker pool.
func (a *Async) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running.Load() {
		return ErrAlreadyRunning
	}

	a.queue = make(chan Task, a.queueSize)
	a.running.Store(true)

	for i := 0; i < a.workerCount; i++ {
		a.wg.Add(1)
		go a.worker()
	}

	return nil
}

// Stop stops the worker pool gracefully. Queued tasks are executed before
// workers exit, or until the context is cancelled.
func (a *Async) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running.Load() {
		a.mu.Unlock()
		return ErrNotRunning
	}
	a.running.Store(false)
	close(a.queue)
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue queues a task for execution. Returns ErrQueueFull when the
// queue is at capacity; the task is dropped and accounted in Stats.
func (a *Async) Enqueue(task Task) error {
	a.mu.Lock()
	if !a.running.Load() {
		a.mu.Unlock()
		return ErrNotRunning
	}

	select {
	case a.queue <- task:
		a.pending++
		a.enqueued.Add(1)
		a.mu.Unlock()
		return nil
	default:
		a.mu.Unlock()
		a.dropped.Add(1)
		return ErrQueueFull
	}
}

// Drain blocks until every task enqueued before the call has finished
// executing. Tasks enqueued after Drain returns are unconstrained.
// Returns immediately if the dispatcher is idle or stopped.
func (a *Async) Drain() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for a.pending > 0 {
		a.cond.Wait()
	}
}

// worker executes tasks from the queue until it is closed.
func (a *Async) worker() {
	defer a.wg.Done()

	for task := range a.queue {
		result := a.executor.Run(task)

		a.executed.Add(1)
		a.totalTimeNs.Add(result.Duration.Nanoseconds())
		switch {
		case result.Panicked:
			a.panicked.Add(1)
		case result.Err != nil:
			a.failed.Add(1)
		}

		a.mu.Lock()
		a.pending--
		if a.pending == 0 {
			a.cond.Broadcast()
		}
		a.mu.Unlock()
	}
}

// QueueDepth returns the number of tasks waiting in the queue.
func (a *Async) QueueDepth() int {
	if !a.running.Load() {
		return 0
	}
	return len(a.queue)
}

// IsRunning returns true if the worker pool is running.
func (a *Async) IsRunning() bool {
	return a.running.Load()
}

// Stats returns dispatcher statistics.
func (a *Async) Stats() AsyncStats {
	executed := a.executed.Load()
	totalNs := a.totalTimeNs.Load()

	var avgNs int64
	if executed > 0 {
		avgNs = totalNs / int64(executed)
	}

	return AsyncStats{
		Enqueued:      a.enqueued.Load(),
		Executed:      executed,
		Failed:        a.failed.Load(),
		Panicked:      a.panicked.Load(),
		Dropped:       a.dropped.Load(),
		QueueDepth:    a.QueueDepth(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// AsyncStats contains statistics for an async dispatcher.
type AsyncStats struct {
	// Enqueued is the total number of tasks accepted into the queue.
	Enqueued uint64

	// Executed is the number of tasks that have run.
	Executed uint64

	// Failed is the number of tasks that returned errors.
	Failed uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// Dropped is the number of tasks rejected because the queue was full.
	Dropped uint64

	// QueueDepth is the current number of waiting tasks.
	QueueDepth int

	// TotalDuration is the cumulative task execution time.
	TotalDuration time.Duration

	// AvgDuration is the average task execution time.
	AvgDuration time.Duration
}
