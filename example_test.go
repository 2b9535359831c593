package beacon_test

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/beacon"
	"github.com/dshills/beacon/pattern"
)

func ExampleNotifier_Instrument() {
	n := beacon.New()

	n.Subscribe(pattern.Exact("render"), beacon.EventFunc(func(e *beacon.Event) error {
		fmt.Printf("%s result=%v\n", e.Name(), e.Result())
		return nil
	}))

	result, _ := beacon.Instrument(context.Background(), n, "render", beacon.Payload{"extra": "info"},
		func(context.Context, beacon.Payload) (int, error) {
			return 42, nil
		})
	fmt.Println("returned", result)

	// Output:
	// render result=42
	// returned 42
}

func ExampleNotifier_Subscribe_raw() {
	n := beacon.New()

	n.Subscribe(pattern.Prefix("sql"), beacon.RawFunc(
		func(name string, start, end time.Time, id string, payload beacon.Payload) error {
			if end.IsZero() {
				fmt.Println("start:", name)
			} else {
				fmt.Println("finish:", name)
			}
			return nil
		}))

	n.Instrument(context.Background(), "sql.query", nil,
		func(context.Context, beacon.Payload) error {
			return nil
		})

	// Output:
	// start: sql.query
	// finish: sql.query
}

func ExampleNotifier_Instrument_nested() {
	n := beacon.New()

	n.Subscribe(nil, beacon.EventFunc(func(e *beacon.Event) error {
		fmt.Printf("%s children=%d\n", e.Name(), len(e.Children()))
		return nil
	}))

	n.Instrument(context.Background(), "request", nil,
		func(ctx context.Context, _ beacon.Payload) error {
			return n.Instrument(ctx, "request.db", nil,
				func(context.Context, beacon.Payload) error { return nil })
		})

	// Output:
	// request.db children=0
	// request children=1
}
