package config

import (
	"errors"
	"fmt"
)

var (
	// ErrWatcherClosed is returned when operating on a closed Watcher.
	ErrWatcherClosed = errors.New("config: watcher closed")

	// ErrInvalidQueueSize indicates a non-positive async queue size.
	ErrInvalidQueueSize = errors.New("config: async queue size must be positive")

	// ErrInvalidWorkers indicates a non-positive async worker count.
	ErrInvalidWorkers = errors.New("config: async workers must be positive")

	// ErrInvalidLogLevel indicates an unrecognized log level name.
	ErrInvalidLogLevel = errors.New("config: invalid log level")

	// ErrEmptyRulePattern indicates a rule with no pattern.
	ErrEmptyRulePattern = errors.New("config: rule pattern must not be empty")
)

// ParseError describes a failure to decode a configuration file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config: parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
