// Package uploads manages upload sessions: named, immutable batches of
// files ingested together (from an explicit file list or a zip archive)
// and served back as a single archive.
//
// A session is materialized in a hidden temp directory first and renamed
// into place only when every file landed, so a failed ingest never
// leaves a partial session behind.
package uploads

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sharepad/sharepad/internal/common"
	"github.com/sharepad/sharepad/internal/filex"
	"github.com/sharepad/sharepad/internal/logging"
	"github.com/sharepad/sharepad/internal/server/models"
)

// idPattern keeps session ids usable in both storage paths and URLs.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

type Service struct {
	root   string
	logger logging.Logger

	// mu guards inflight: at most one ingest per session id at a time.
	// Ingests for distinct ids run fully in parallel.
	mu       sync.Mutex
	inflight map[string]struct{}

	now func() time.Time
}

func NewService(root string, l logging.Logger) (*Service, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, err
	}
	return &Service{
		root:     abs,
		logger:   l.With("module", "uploads"),
		inflight: map[string]struct{}{},
		now:      time.Now,
	}, nil
}

// NewFolderID builds a session id from an uploaded folder name plus a
// millisecond timestamp suffix for uniqueness.
func (s *Service) NewFolderID(folder string) string {
	name := sanitizeIDPart(folder)
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("%s-%d", name, s.now().UnixMilli())
}

// NewZipID builds a synthetic session id for an archive upload.
func (s *Service) NewZipID() string {
	return fmt.Sprintf("zip-%d", s.now().UnixMilli())
}

func sanitizeIDPart(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), ".-")
}

func (s *Service) sessionDir(id string) (string, error) {
	if !idPattern.MatchString(id) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidUploadID, id)
	}
	dir := filepath.Join(s.root, id)
	if !filex.WithinRoot(s.root, dir) {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidUploadID, id)
	}
	return dir, nil
}

// acquire reserves id for one ingest. A session directory that already
// exists is rejected rather than overwritten: sessions are immutable
// once created.
func (s *Service) acquire(id, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[id]; busy {
		return fmt.Errorf("%w: ingest in progress for %q", common.ErrDuplicateUpload, id)
	}
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: %q", common.ErrDuplicateUpload, id)
	}
	s.inflight[id] = struct{}{}
	return nil
}

func (s *Service) release(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

// IngestFiles materializes the given files under a new session keyed by
// id, preserving relative path structure. Any path that would escape the
// session root fails the whole ingest with an error wrapping
// common.ErrIngest; nothing is created in that case.
func (s *Service) IngestFiles(ctx context.Context, id string, files []models.UploadFile) (*models.UploadSession, error) {
	dir, err := s.sessionDir(id)
	if err != nil {
		return nil, err
	}
	if err := s.acquire(id, dir); err != nil {
		return nil, err
	}
	defer s.release(id)

	tmp := filepath.Join(s.root, ".ingest-"+id)
	if err := os.MkdirAll(tmp, 0o770); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIngest, err)
	}

	session, err := s.writeFiles(tmp, id, files)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return nil, err
	}

	if err := os.Rename(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, fmt.Errorf("%w: finalize: %v", common.ErrIngest, err)
	}

	s.logger.Info(ctx, "session created", "id", id, "file_count", session.FileCount, "size_bytes", session.SizeBytes)
	return session, nil
}

func (s *Service) writeFiles(tmp, id string, files []models.UploadFile) (*models.UploadSession, error) {
	var count int
	var size int64

	for _, f := range files {
		rel := filepath.FromSlash(f.Path)
		if rel == "" || filepath.IsAbs(rel) {
			return nil, fmt.Errorf("%w: invalid path %q", common.ErrIngest, f.Path)
		}
		target := filepath.Join(tmp, rel)
		if !filex.WithinRoot(tmp, target) {
			return nil, fmt.Errorf("%w: path %q escapes session root", common.ErrIngest, f.Path)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o770); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrIngest, err)
		}
		if err := os.WriteFile(target, f.Data, 0o660); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrIngest, err)
		}
		count++
		size += int64(len(f.Data))
	}

	return &models.UploadSession{
		ID:        id,
		FileCount: count,
		SizeBytes: size,
		CreatedAt: s.now(),
	}, nil
}

// List returns metadata for every session, ordered by creation time.
// Counts and sizes are recomputed from the stored file sets.
func (s *Service) List(ctx context.Context) ([]models.UploadSession, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read uploads root: %w", err)
	}

	var sessions []models.UploadSession
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		session, err := s.stat(e.Name())
		if err != nil {
			s.logger.Warn(ctx, "skipping unreadable session", "id", e.Name(), "error", err)
			continue
		}
		sessions = append(sessions, *session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (s *Service) stat(id string) (*models.UploadSession, error) {
	dir, err := s.sessionDir(id)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q", common.ErrNotFound, id)
	}

	var count int
	var size int64
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		count++
		size += fi.Size()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.UploadSession{
		ID:        id,
		FileCount: count,
		SizeBytes: size,
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes the session and its files. This is an explicit
// administrative operation, never triggered implicitly.
func (s *Service) Delete(ctx context.Context, id string) error {
	dir, err := s.sessionDir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: %q", common.ErrNotFound, id)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete session %q: %w", id, err)
	}
	s.logger.Info(ctx, "session deleted", "id", id)
	return nil
}
