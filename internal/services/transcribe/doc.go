// Package transcribe submits uploaded audio to the long-running speech
// recognition API and polls the resulting operation within a bounded wait
// budget.
package transcribe
