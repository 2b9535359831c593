package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/beacon"
)

// JSONL writes one JSON document per completed event to an io.Writer,
// newline-delimited. Payload keys listed in Redact are removed from the
// output (the in-memory payload is untouched). Writes are serialized, so
// a single JSONL may be subscribed on multiple notifiers or with async
// delivery.
type JSONL struct {
	mu     sync.Mutex
	w      io.Writer
	redact []string
	pretty bool
}

// JSONLOption configures a JSONL sink.
type JSONLOption func(*JSONL)

// WithRedact removes the given payload keys from the written output.
// Keys are gjson-style paths, so nested values can be redacted too.
func WithRedact(keys ...string) JSONLOption {
	return func(s *JSONL) {
		s.redact = append(s.redact, keys...)
	}
}

// WithPretty indents the output for human consumption. The result is no
// longer one line per event.
func WithPretty() JSONLOption {
	return func(s *JSONL) {
		s.pretty = true
	}
}

// NewJSONL creates a sink writing to w.
func NewJSONL(w io.Writer, opts ...JSONLOption) *JSONL {
	s := &JSONL{w: w}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// record is the wire form of one completed event.
type record struct {
	Name          string         `json:"name"`
	TransactionID string         `json:"transaction_id"`
	Start         time.Time      `json:"start"`
	End           time.Time      `json:"end"`
	DurationMS    float64        `json:"duration_ms"`
	Payload       beacon.Payload `json:"payload,omitempty"`
	Children      []string       `json:"children,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// HandleEvent implements beacon.EventHandler.
func (s *JSONL) HandleEvent(e *beacon.Event) error {
	d, err := e.Duration()
	if err != nil {
		return err
	}

	rec := record{
		Name:          e.Name(),
		TransactionID: e.TransactionID(),
		Start:         e.StartTime(),
		End:           e.EndTime(),
		DurationMS:    float64(d) / float64(time.Millisecond),
		Payload:       e.Payload(),
		Children:      e.Children(),
	}
	if blockErr := e.Err(); blockErr != nil {
		rec.Error = blockErr.Error()
		// The error value itself is not JSON-serializable in general.
		rec.Payload = clonePayloadWithout(rec.Payload, beacon.ErrorKey)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", e.Name(), err)
	}

	for _, key := range s.redact {
		data, err = sjson.DeleteBytes(data, "payload."+key)
		if err != nil {
			return fmt.Errorf("redacting %s: %w", key, err)
		}
	}

	if s.pretty {
		data = pretty.Pretty(data)
	} else {
		data = append(data, '\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(data)
	return err
}

// clonePayloadWithout returns a shallow copy of p without the given key.
func clonePayloadWithout(p beacon.Payload, key string) beacon.Payload {
	out := make(beacon.Payload, len(p))
	for k, v := range p {
		if k == key {
			continue
		}
		out[k] = v
	}
	return out
}
