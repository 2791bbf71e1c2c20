// Package config loads, normalizes, and validates the TOML configuration
// shared by the daemon and the CLI. All path fields are expanded to absolute
// paths and secrets fall back to environment variables.
package config
