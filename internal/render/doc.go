// Package render turns summary text into a PDF document: a deterministic
// line-oriented parse of the summarizer's markdown grammar followed by an
// fpdf write with Cyrillic-capable TTF fonts.
package render
