package dispatch

import "errors"

// Sentinel errors for dispatchers.
var (
	// ErrNotRunning is returned when enqueuing to a stopped dispatcher.
	ErrNotRunning = errors.New("dispatcher is not running")

	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("dispatcher is already running")

	// ErrQueueFull is returned when the task queue is at capacity.
	ErrQueueFull = errors.New("dispatch queue is full")
)
