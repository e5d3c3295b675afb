// Package document provides repositories for the single shared
// document: an in-memory implementation (the default) and a
// PostgreSQL-backed one.
package document

import (
	"context"
	"sync"
	"time"

	"github.com/sharepad/sharepad/internal/server/models"
)

// MemoryRepository keeps the document in process memory behind a
// read-write mutex. The write lock covers the whole
// replace-increment-append sequence, so version increments are exactly
// sequential with no gaps or duplicates.
type MemoryRepository struct {
	mu      sync.RWMutex
	content []byte
	version int64
	history []models.HistoryEntry

	now func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (r *MemoryRepository) Read(ctx context.Context) (models.DocumentState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	content := make([]byte, len(r.content))
	copy(content, r.content)
	return models.DocumentState{Content: content, Version: r.version}, nil
}

func (r *MemoryRepository) Write(ctx context.Context, content []byte, clientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.content = make([]byte, len(content))
	copy(r.content, content)
	r.version++
	r.history = append(r.history, models.HistoryEntry{
		Version:   r.version,
		ClientID:  clientID,
		Timestamp: r.now(),
	})
	return r.version, nil
}

func (r *MemoryRepository) HistorySince(ctx context.Context, after int64) ([]models.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// history[i].Version == i+1, so entries with version > after start
	// at index after. Keeps the common near-head poll cheap.
	if after < 0 {
		after = 0
	}
	if after >= int64(len(r.history)) {
		return nil, nil
	}
	tail := r.history[after:]
	result := make([]models.HistoryEntry, len(tail))
	copy(result, tail)
	return result, nil
}
