package sink

import (
	"context"
	"log/slog"

	"github.com/dshills/beacon"
)

// Slog emits completed events to a slog.Logger. The event name becomes
// the log message, timing and transaction ID become attributes, and
// payload keys are flattened as top-level attributes. Events whose
// payload recorded a block failure log at error level, everything else
// at info.
type Slog struct {
	logger *slog.Logger
}

// NewSlog creates a sink emitting to the given logger. A nil logger uses
// slog.Default.
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger}
}

// HandleEvent implements beacon.EventHandler.
func (s *Slog) HandleEvent(e *beacon.Event) error {
	d, err := e.Duration()
	if err != nil {
		return err
	}

	attrs := make([]slog.Attr, 0, len(e.Payload())+2)
	attrs = append(attrs,
		slog.String("transaction_id", e.TransactionID()),
		slog.Duration("duration", d),
	)
	for k, v := range e.Payload() {
		attrs = append(attrs, slog.Any(k, v))
	}

	level := slog.LevelInfo
	if e.Err() != nil {
		level = slog.LevelError
	}

	s.logger.LogAttrs(context.Background(), level, e.Name(), attrs...)
	return nil
}
