// Package queue persists tasks in SQLite and is the single source of truth
// for task status. Status writes are atomic per task id.
package queue
