// Package pipeline orchestrates a task's run from queued to a terminal
// state: validate, download, extract, transcribe, summarize, render, upload.
// Stage failures become a terminal error status on the task; the scratch
// workspace is released on every path.
package pipeline
