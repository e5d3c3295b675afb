// Package common defines sentinel errors shared across sharepad
// components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository / session lookup errors.
	ErrNotFound = errors.New("not found")

	// Upload ingest errors. ErrIngest wraps the concrete cause
	// (traversal attempt, corrupt archive, I/O failure).
	ErrIngest          = errors.New("ingest error")
	ErrInvalidUploadID = errors.New("invalid upload id")
	ErrDuplicateUpload = errors.New("upload id already exists")

	// Generic internal flow control.
	ErrInternal = errors.New("internal error")
)
