// Package storage uploads pipeline artifacts to an S3-compatible bucket and
// issues presigned download URLs for completed documents.
package storage
