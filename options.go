package beacon

// PanicHandler is called when a subscriber panics during dispatch.
type PanicHandler func(recovered any, stack []byte)

// Option configures a Fanout (and, through New, a Notifier).
type Option func(*config)

// config contains configuration shared by Fanout and Notifier.
type config struct {
	// asyncQueueSize is the capacity of the async delivery queue.
	asyncQueueSize int

	// asyncWorkerCount is the number of async delivery workers.
	asyncWorkerCount int

	// panicHandler is called when a subscriber panics.
	panicHandler PanicHandler
}

// defaultConfig returns sensible defaults.
func defaultConfig() config {
	return config{
		asyncQueueSize:   4096,
		asyncWorkerCount: 4,
	}
}

// WithAsyncQueueSize sets the async delivery queue capacity.
func WithAsyncQueueSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.asyncQueueSize = size
		}
	}
}

// WithAsyncWorkers sets the number of async delivery workers.
func WithAsyncWorkers(count int) Option {
	return func(c *config) {
		if count > 0 {
			c.asyncWorkerCount = count
		}
	}
}

// WithSubscriberPanicHandler sets the handler invoked when a subscriber
// panics. Panics are always isolated; the handler is for reporting.
func WithSubscriberPanicHandler(h PanicHandler) Option {
	return func(c *config) {
		if h != nil {
			c.panicHandler = h
		}
	}
}
