package dispatch

import (
	"runtime/debug"
	"time"
)

// Task is a single unit of delivery work.
type Task func() error

// PanicHandler is called when a task panics.
type PanicHandler func(recovered any, stack []byte)

// Result describes the outcome of one task execution.
type Result struct {
	// Err is the error returned by the task, or nil.
	Err error

	// Panicked reports whether the task panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), when Panicked is true.
	PanicValue any

	// PanicStack is the stack trace captured at recovery.
	PanicStack []byte

	// Duration is the task's wall-clock execution time.
	Duration time.Duration
}

// Failed reports whether the task returned an error or panicked.
func (r Result) Failed() bool {
	return r.Err != nil || r.Panicked
}

// Executor runs tasks inline with panic recovery and timing.
type Executor struct {
	panicHandler PanicHandler
}

// NewExecutor creates an executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPanicHandler sets the handler invoked when a task panics.
func WithPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// Run executes the task in the caller's goroutine and returns its result.
// A panic in the task is recovered, recorded in the result, and reported
// to the panic handler; it never escapes to the caller.
func (e *Executor) Run(task Task) (result Result) {
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			if e.panicHandler != nil {
				// The panic handler must not crash the process either.
				func() {
					defer func() { _ = recover() }()
					e.panicHandler(r, stack)
				}()
			}
		}
	}()

	result.Err = task()
	return result
}
