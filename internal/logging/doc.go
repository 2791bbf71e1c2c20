// Package logging provides slog construction helpers, shared attribute
// constructors, and context-derived logger enrichment used across the daemon
// and CLI.
package logging
