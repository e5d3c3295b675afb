// Package models contains the server-side record types shared by
// repositories, services and the HTTP layer.
package models

import "time"

// HistoryEntry is the immutable record of one accepted document write.
// It carries metadata only; prior content bodies are never retained.
type HistoryEntry struct {
	Version   int64     `json:"version"`
	ClientID  string    `json:"client_id"`
	Timestamp time.Time `json:"timestamp"`
}

// DocumentState is the atomically-read pair of current content and
// version. Content is opaque to the server: it may be plaintext or an
// encryption envelope, and the server never inspects which.
type DocumentState struct {
	Content []byte
	Version int64
}
