// Package llm generates structured lecture notes from transcripts via the
// text completion API, with bounded retries for transient provider errors.
package llm
