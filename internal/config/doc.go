// Package config loads, normalizes, and validates the TOML configuration
// shared by the mixdown daemon and CLI.
package config
