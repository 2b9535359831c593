// Package config loads beaconmon configuration from TOML files with
// environment variable overrides, and can watch a config file for
// changes so filter rules reload without restarting the process.
//
// Precedence, lowest to highest:
//
//	defaults -> TOML file -> BEACON_* environment variables
//
// A missing config file is not an error; defaults apply. A malformed
// file is reported as a *ParseError wrapping the decoder error.
package config
