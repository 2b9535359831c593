package beacon

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// BlockFunc is the unit of work wrapped by Instrument. The payload passed
// in is the same object delivered to subscribers; mutations made by the
// block are visible to finish observers.
type BlockFunc func(ctx context.Context, payload Payload) error

// Instrumenter creates events, tracks the nesting stack, and forwards
// start/finish notifications for one logical execution context.
//
// An Instrumenter is bound to the context chain it was created on and is
// not safe for concurrent use; goroutines spawned inside a block must not
// share the block's context with concurrent Instrument calls. Each fresh
// context chain gets its own Instrumenter on first use.
type Instrumenter struct {
	notifier *Notifier
	id       string
	seq      uint64
	stack    []*Event
}

// newInstrumenter creates an instrumenter bound to n.
func newInstrumenter(n *Notifier) *Instrumenter {
	return &Instrumenter{
		notifier: n,
		id:       uuid.NewString(),
	}
}

// ID returns the instrumenter's unique identifier, the prefix of every
// transaction ID it generates.
func (i *Instrumenter) ID() string {
	return i.id
}

// Depth returns the number of currently open instrumented operations.
func (i *Instrumenter) Depth() int {
	return len(i.stack)
}

// nextTransactionID generates a transaction ID unique within this
// instrumenter for the process lifetime.
func (i *Instrumenter) nextTransactionID() string {
	i.seq++
	return i.id + "-" + strconv.FormatUint(i.seq, 10)
}

// instrument runs one instrumented operation: start notification, block,
// guaranteed finish notification, in that order on every exit path.
func (i *Instrumenter) instrument(ctx context.Context, name string, payload Payload, block BlockFunc) (err error) {
	ev := newEvent(name, i.nextTransactionID(), payload, time.Now())

	if n := len(i.stack); n > 0 {
		i.stack[n-1].addChild(ev.transactionID)
	}
	i.stack = append(i.stack, ev)

	startErr := i.notifier.fanout.publishStart(ev)

	// Finish always fires: normal return, block error, or block panic.
	defer func() {
		i.stack = i.stack[:len(i.stack)-1]
		ev.finish(time.Now())
		finishErr := i.notifier.fanout.publishFinish(ev)

		// Block failure propagates unchanged; subscriber failures are
		// surfaced only when the block itself succeeded.
		if err == nil {
			err = errors.Join(startErr, finishErr)
		}
	}()

	if blockErr := block(ctx, payload); blockErr != nil {
		payload[ErrorKey] = blockErr
		return blockErr
	}
	return nil
}

// instrumenterCtxKey keys the context-local instrumenter.
type instrumenterCtxKey struct{}

// InstrumenterFromContext returns the instrumenter carried by ctx, if it
// belongs to n.
func InstrumenterFromContext(ctx context.Context, n *Notifier) (*Instrumenter, bool) {
	inst, ok := ctx.Value(instrumenterCtxKey{}).(*Instrumenter)
	if !ok || inst.notifier != n {
		return nil, false
	}
	return inst, true
}

// instrumenter returns the context-local instrumenter for n, creating
// and attaching one when the context carries none (or one bound to a
// different notifier).
func (n *Notifier) instrumenter(ctx context.Context) (*Instrumenter, context.Context) {
	if inst, ok := InstrumenterFromContext(ctx, n); ok {
		return inst, ctx
	}
	inst := newInstrumenter(n)
	return inst, context.WithValue(ctx, instrumenterCtxKey{}, inst)
}

// Instrument runs a generic block under instrumentation on n, storing its
// result in the payload under ResultKey and returning it to the caller.
// See Notifier.Instrument for delivery semantics.
func Instrument[T any](ctx context.Context, n *Notifier, name string, payload Payload, block func(ctx context.Context, payload Payload) (T, error)) (T, error) {
	var result T
	if payload == nil {
		payload = Payload{}
	}
	err := n.Instrument(ctx, name, payload, func(ctx context.Context, p Payload) error {
		v, blockErr := block(ctx, p)
		if blockErr != nil {
			return blockErr
		}
		result = v
		p[ResultKey] = v
		return nil
	})
	return result, err
}
