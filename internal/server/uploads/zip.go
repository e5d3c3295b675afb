package uploads

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sharepad/sharepad/internal/common"
	"github.com/sharepad/sharepad/internal/filex"
	"github.com/sharepad/sharepad/internal/server/models"
)

// IngestZip extracts the given archive into a new session keyed by id,
// with the same path-traversal guard and full-rollback behavior as
// IngestFiles. A corrupt or unreadable archive fails the ingest and
// leaves no session directory behind.
func (s *Service) IngestZip(ctx context.Context, id string, archive []byte) (*models.UploadSession, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt archive: %v", common.ErrIngest, err)
	}

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

	session, err := s.extract(tmp, id, zr)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return nil, err
	}

	if err := os.Rename(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, fmt.Errorf("%w: finalize: %v", common.ErrIngest, err)
	}

	s.logger.Info(ctx, "session created from archive", "id", id, "file_count", session.FileCount, "size_bytes", session.SizeBytes)
	return session, nil
}

func (s *Service) extract(tmp, id string, zr *zip.Reader) (*models.UploadSession, error) {
	var count int
	var size int64

	for _, f := range zr.File {
		name := f.Name
		if name == "" || strings.HasSuffix(name, "/") {
			continue // directory entry
		}
		target := filepath.Join(tmp, filepath.FromSlash(name))
		if !filex.WithinRoot(tmp, target) {
			return nil, fmt.Errorf("%w: entry %q escapes session root", common.ErrIngest, name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o770); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrIngest, err)
		}

		n, err := extractOne(f, target)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", common.ErrIngest, name, err)
		}
		count++
		size += n
	}

	return &models.UploadSession{
		ID:        id,
		FileCount: count,
		SizeBytes: size,
		CreatedAt: s.now(),
	}, nil
}

func extractOne(f *zip.File, target string) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, rc)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Archive streams the session's current file set to w as one zip
// archive, preserving relative paths. Returns common.ErrNotFound for an
// unknown id.
func (s *Service) Archive(ctx context.Context, id string, w io.Writer) error {
	dir, err := s.sessionDir(id)
	if err != nil {
		return err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %q", common.ErrNotFound, id)
	}

	zw := zip.NewWriter(w)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}

		hdr := &zip.FileHeader{Name: filepath.ToSlash(rel), Method: zip.Deflate}
		hdr.Modified = fi.ModTime()
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(fw, src)
		return err
	})
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("archive session %q: %w", id, err)
	}
	return zw.Close()
}
