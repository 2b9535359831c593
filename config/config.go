package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "BEACON_"

// Config is the beaconmon configuration tree.
type Config struct {
	Log   LogConfig    `toml:"log"`
	Async AsyncConfig  `toml:"async"`
	JSONL JSONLConfig  `toml:"jsonl"`
	Rules []RuleConfig `toml:"rule"`
}

// LogConfig controls the slog sink.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// AsyncConfig sizes the asynchronous delivery pool.
type AsyncConfig struct {
	QueueSize int `toml:"queue_size"`
	Workers   int `toml:"workers"`
}

// JSONLConfig controls the JSONL sink. An empty Path disables it.
type JSONLConfig struct {
	Path   string   `toml:"path"`
	Pretty bool     `toml:"pretty"`
	Redact []string `toml:"redact"`
}

// RuleConfig describes one subscription: a name pattern plus optional
// Lua filter expression and delivery flags.
type RuleConfig struct {
	Pattern string `toml:"pattern"`
	Filter  string `toml:"filter"`
	Async   bool   `toml:"async"`
	Once    bool   `toml:"once"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Async: AsyncConfig{
			QueueSize: 4096,
			Workers:   4,
		},
		Rules: []RuleConfig{
			{Pattern: "*"},
		},
	}
}

// Load reads a TOML config file, applies environment overrides, and
// validates the result. A missing file yields defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults apply.
	case err != nil:
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, &ParseError{Path: path, Err: err}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays BEACON_* environment variables onto the config.
// Empty values are valid; only unset variables are skipped.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "ASYNC_QUEUE_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Async.QueueSize = n
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "ASYNC_WORKERS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Async.Workers = n
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "JSONL_PATH"); ok {
		c.JSONL.Path = v
	}
}

// Validate checks the configuration for internally consistent values.
func (c *Config) Validate() error {
	if c.Async.QueueSize <= 0 {
		return ErrInvalidQueueSize
	}
	if c.Async.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	for i, r := range c.Rules {
		if strings.TrimSpace(r.Pattern) == "" {
			return fmt.Errorf("%w (rule %d)", ErrEmptyRulePattern, i)
		}
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}
}
