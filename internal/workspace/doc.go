// Package workspace manages per-task scratch directories: deterministic
// paths, disk-space preflight on allocation, idempotent release, and a stale
// sweep for leftovers from interrupted runs.
package workspace
