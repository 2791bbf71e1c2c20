// Package disklink resolves public share links: metadata lookup, acceptance
// checks (video mime type, size cap), and direct download URL exchange.
package disklink
