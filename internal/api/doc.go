// Package api implements the task service behind the HTTP surface: task
// creation with derived titles, and read access with presigned download URLs
// for completed documents.
package api
