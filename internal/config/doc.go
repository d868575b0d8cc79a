// Package config loads, normalizes, and validates the TOML configuration
// consumed by the daemon and CLI.
//
// The configuration is read once at startup; the core treats it as an
// immutable input. Paths are expanded to absolute form during load and
// every section is given sane defaults so a minimal config file works.
package config
