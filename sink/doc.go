// Package sink provides ready-made subscribers for the beacon bus.
//
// Slog emits completed events to a log/slog logger, one record per
// finished instrumentation. JSONL writes events as JSON Lines to any
// io.Writer, with optional payload redaction and pretty-printing for
// human consumption.
//
// Sinks are ordinary beacon handlers; register them with Subscribe:
//
//	n.Subscribe(pattern.Prefix("sql"), sink.NewSlog(logger))
package sink
