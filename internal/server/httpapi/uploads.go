package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/sharepad/sharepad/internal/common"
	"github.com/sharepad/sharepad/internal/server/models"
)

type sessionResponse struct {
	OK      bool                 `json:"ok"`
	Session models.UploadSession `json:"session"`
}

type listResponse struct {
	Uploads []models.UploadSession `json:"uploads"`
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.uploads.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.UploadSession{}
	}
	s.writeJSON(w, http.StatusOK, listResponse{Uploads: sessions})
}

// handleUpload ingests a multipart folder upload. Each part in the
// "files" field carries its path relative to the uploaded folder as the
// part filename.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := r.ParseMultipartForm(s.maxBodyBytes); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("parse form: %v", err)})
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "files missing"})
		return
	}

	files := make([]models.UploadFile, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("read part %q: %v", fh.Filename, err)})
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("read part %q: %v", fh.Filename, err)})
			return
		}
		files = append(files, models.UploadFile{Path: partPath(fh), Data: data})
	}

	id := r.FormValue("upload_id")
	if id == "" {
		id = s.uploads.NewFolderID(topFolder(files[0].Path))
	}

	session, err := s.uploads.IngestFiles(r.Context(), id, files)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{OK: true, Session: *session})
}

// partPath recovers the relative path from the part's raw
// Content-Disposition header. FileHeader.Filename cannot be used here:
// it is passed through filepath.Base and would flatten the folder
// structure (and hide traversal attempts from the ingest guard).
func partPath(fh *multipart.FileHeader) string {
	if cd := fh.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return fh.Filename
}

// topFolder returns the leading path segment of a relative slash path,
// or the whole name when there is none.
func topFolder(path string) string {
	if i := strings.IndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return path
}

func (s *Server) handleUploadZip(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := r.ParseMultipartForm(s.maxBodyBytes); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("parse form: %v", err)})
		return
	}

	headers := r.MultipartForm.File["zip_file"]
	if len(headers) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "zip_file missing"})
		return
	}

	src, err := headers[0].Open()
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("read zip: %v", err)})
		return
	}
	archive, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("read zip: %v", err)})
		return
	}

	id := r.FormValue("upload_id")
	if id == "" {
		id = s.uploads.NewZipID()
	}

	session, err := s.uploads.IngestZip(r.Context(), id, archive)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{OK: true, Session: *session})
}

// handleDownload streams the session archive, or, with ?presign=1 and a
// configured mirror, uploads the archive to the bucket and returns a
// presigned URL instead of the bytes.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if r.URL.Query().Get("presign") == "1" && s.mirror != nil && s.mirror.Enabled() {
		if _, err := s.mirror.MirrorArchive(r.Context(), id); err != nil {
			s.writeError(w, err)
			return
		}
		url, err := s.mirror.PresignDownload(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"url": url})
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".zip"))
	if err := s.uploads.Archive(r.Context(), id, w); err != nil {
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrInvalidUploadID) {
			// nothing streamed yet, the error response can still go out
			w.Header().Del("Content-Disposition")
			s.writeError(w, err)
			return
		}
		// mid-stream failure: headers are already out, just log it
		s.logger.Error(r.Context(), "archive stream failed", "id", id, "error", err)
	}
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.uploads.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
