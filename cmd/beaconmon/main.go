// Package main is the beaconmon diagnostic monitor. It subscribes to
// an instrumentation bus according to a TOML config, runs a synthetic
// instrumented workload, and emits matching events to slog and
// optionally a JSONL file. Editing the config file while beaconmon is
// running reloads the subscription rules without a restart.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/beacon"
	"github.com/dshills/beacon/config"
	"github.com/dshills/beacon/pattern"
	"github.com/dshills/beacon/script"
	"github.com/dshills/beacon/sink"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

type options struct {
	configPath string
	duration   time.Duration
	interval   time.Duration
	watch      bool
}

func run() int {
	opts, ok := parseFlags()
	if !ok {
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return 1
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	notifier := beacon.New(
		beacon.WithAsyncQueueSize(cfg.Async.QueueSize),
		beacon.WithAsyncWorkers(cfg.Async.Workers),
		beacon.WithSubscriberPanicHandler(func(recovered any, stack []byte) {
			logger.Error("subscriber panic", "value", recovered)
		}),
	)

	mon := &monitor{notifier: notifier}
	defer mon.closeFilters()

	// Sinks shared by every rule.
	mon.handlers = append(mon.handlers, sink.NewSlog(logger))

	if cfg.JSONL.Path != "" {
		f, err := os.OpenFile(cfg.JSONL.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening jsonl file: %v\n", err)
			return 1
		}
		defer f.Close()

		var jopts []sink.JSONLOption
		if len(cfg.JSONL.Redact) > 0 {
			jopts = append(jopts, sink.WithRedact(cfg.JSONL.Redact...))
		}
		if cfg.JSONL.Pretty {
			jopts = append(jopts, sink.WithPretty())
		}
		mon.handlers = append(mon.handlers, sink.NewJSONL(f, jopts...))
	}

	if err := mon.applyRules(cfg.Rules); err != nil {
		fmt.Fprintf(os.Stderr, "Error: applying rules: %v\n", err)
		return 1
	}

	if opts.watch {
		watcher, err := config.NewWatcher(opts.configPath,
			func(next config.Config) {
				if err := mon.applyRules(next.Rules); err != nil {
					logger.Error("rule reload failed", "error", err)
					return
				}
				logger.Info("rules reloaded", "rules", len(next.Rules))
			},
			config.WithErrorFunc(func(err error) {
				logger.Error("config watch error", "error", err)
			}),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: watching config: %v\n", err)
			return 1
		}
		defer watcher.Close()
		logger.Info("watching config", "path", watcher.Path())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	logger.Info("beaconmon starting", "version", version, "interval", opts.interval)
	workload(ctx, notifier, logger, opts.interval)

	notifier.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := notifier.Close(closeCtx); err != nil {
		logger.Error("shutdown", "error", err)
		return 1
	}

	stats := notifier.Stats()
	logger.Info("beaconmon done",
		"published", stats.Published,
		"delivered", stats.Delivered,
		"failed", stats.HandlerErrors,
		"dropped", stats.Dropped,
	)
	return 0
}

// monitor owns the live subscriptions and their Lua filters so rule
// reloads can tear down the previous generation cleanly.
type monitor struct {
	notifier *beacon.Notifier
	handlers []beacon.Handler

	subs    []*beacon.Subscription
	filters []*script.Filter
}

// applyRules replaces the current subscriptions with one per rule per
// sink handler. The old generation is removed only after the new one
// subscribed successfully.
func (m *monitor) applyRules(rules []config.RuleConfig) error {
	var (
		newSubs    []*beacon.Subscription
		newFilters []*script.Filter
	)

	fail := func(err error) error {
		for _, s := range newSubs {
			m.notifier.Unsubscribe(s)
		}
		for _, f := range newFilters {
			f.Close()
		}
		return err
	}

	for _, rule := range rules {
		p, err := pattern.Compile(rule.Pattern)
		if err != nil {
			return fail(fmt.Errorf("pattern %q: %w", rule.Pattern, err))
		}

		var subOpts []beacon.SubscriptionOption
		if rule.Filter != "" {
			f, err := script.NewFilter(rule.Filter)
			if err != nil {
				return fail(fmt.Errorf("filter for %q: %w", rule.Pattern, err))
			}
			newFilters = append(newFilters, f)
			subOpts = append(subOpts, beacon.WithFilter(f.Func()))
		}
		if rule.Async {
			subOpts = append(subOpts, beacon.WithAsync())
		}
		if rule.Once {
			subOpts = append(subOpts, beacon.WithOnce())
		}

		for _, h := range m.handlers {
			sub, err := m.notifier.Subscribe(p, h, subOpts...)
			if err != nil {
				return fail(fmt.Errorf("subscribing %q: %w", rule.Pattern, err))
			}
			newSubs = append(newSubs, sub)
		}
	}

	old, oldFilters := m.subs, m.filters
	m.subs, m.filters = newSubs, newFilters

	for _, s := range old {
		m.notifier.Unsubscribe(s)
	}
	// Async deliveries may still hold the old filters.
	m.notifier.Wait()
	for _, f := range oldFilters {
		f.Close()
	}
	return nil
}

func (m *monitor) closeFilters() {
	for _, f := range m.filters {
		f.Close()
	}
}

// workload publishes a synthetic stream of nested instrumented
// operations until the context ends.
func workload(ctx context.Context, n *beacon.Notifier, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	tick := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		tick++
		err := n.Instrument(ctx, "beaconmon.tick", beacon.Payload{"tick": tick}, func(ctx context.Context, payload beacon.Payload) error {
			rows := rng.Intn(100)
			qErr := n.Instrument(ctx, "beaconmon.tick.query", beacon.Payload{"rows": rows}, func(ctx context.Context, payload beacon.Payload) error {
				time.Sleep(time.Duration(rng.Intn(3)) * time.Millisecond)
				if rows == 0 {
					return fmt.Errorf("no rows for tick %d", tick)
				}
				return nil
			})
			payload["rows"] = rows
			return qErr
		})
		if err != nil {
			logger.Debug("tick failed", "tick", tick, "error", err)
		}
	}
}

func buildLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	hopts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, hopts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, hopts)
	}
	return slog.New(handler), nil
}

func parseFlags() (options, bool) {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", "beacon.toml", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "beacon.toml", "Path to configuration file (shorthand)")
	flag.DurationVar(&opts.duration, "duration", 0, "How long to run (0 means until interrupted)")
	flag.DurationVar(&opts.interval, "interval", 250*time.Millisecond, "Delay between synthetic operations")
	flag.BoolVar(&opts.watch, "watch", true, "Reload rules when the config file changes")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if showVersion {
		fmt.Printf("beaconmon %s (%s)\n", version, commit)
		return opts, false
	}
	return opts, true
}
