// Package daemon hosts the long-running process surface: the HTTP server for
// queue triggers and the task API, and the single-instance file lock.
package daemon
