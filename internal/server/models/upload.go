package models

import "time"

// UploadSession describes one finalized batch of uploaded files.
// FileCount and SizeBytes are computed from the file set actually
// stored on disk, never taken from client-declared metadata.
type UploadSession struct {
	ID        string    `json:"id"`
	FileCount int       `json:"file_count"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadFile is one file of an ingest request: a slash-separated path
// relative to the session root plus its content.
type UploadFile struct {
	Path string
	Data []byte
}
