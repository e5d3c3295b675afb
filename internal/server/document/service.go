// Package document implements the store service for the single shared
// document. It is the consistency authority: every write is serialized
// here so versions increase by exactly one per accepted write with no
// gaps, regardless of which repository backs it.
package document

import (
	"context"
	"sync"

	"github.com/sharepad/sharepad/internal/logging"
	"github.com/sharepad/sharepad/internal/server/models"
	repo "github.com/sharepad/sharepad/internal/server/repositories/document"
)

type Service struct {
	repo   repo.Repository
	logger logging.Logger

	// writeMu serializes the replace-increment-append sequence across
	// callers. Repositories lock internally too; this keeps the
	// gap-free guarantee independent of the backing implementation.
	writeMu sync.Mutex
}

func NewService(r repo.Repository, l logging.Logger) *Service {
	return &Service{repo: r, logger: l.With("module", "document")}
}

// Read returns the current content and version as one consistent
// snapshot. Content is opaque bytes; it may be an encryption envelope.
func (s *Service) Read(ctx context.Context) (models.DocumentState, error) {
	return s.repo.Read(ctx)
}

// Write unconditionally replaces the content, bumps the version by one
// and appends a history entry attributed to clientID. There is no
// expected-version precondition: near-simultaneous writes both succeed
// and the later-serialized one wins (last-writer-wins by design).
func (s *Service) Write(ctx context.Context, content []byte, clientID string) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	version, err := s.repo.Write(ctx, content, clientID)
	if err != nil {
		s.logger.Error(ctx, "write failed", "client_id", clientID, "error", err)
		return 0, err
	}
	s.logger.Info(ctx, "accepted write", "version", version, "client_id", clientID)
	return version, nil
}

// HistorySince returns every history entry with version > after in
// ascending version order. Repeated calls against unchanged state return
// identical results.
func (s *Service) HistorySince(ctx context.Context, after int64) ([]models.HistoryEntry, error) {
	return s.repo.HistorySince(ctx, after)
}
