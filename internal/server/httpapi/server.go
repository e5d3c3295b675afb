// Package httpapi exposes the document-sync and upload-session
// operations over HTTP. It is a thin boundary: request decoding and
// status mapping only — authentication and static content belong to an
// outer layer, and the supplied client_id is trusted as given.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sharepad/sharepad/internal/common"
	"github.com/sharepad/sharepad/internal/logging"
	"github.com/sharepad/sharepad/internal/server/document"
	syncr "github.com/sharepad/sharepad/internal/server/sync"
	"github.com/sharepad/sharepad/internal/server/uploads"
)

type Server struct {
	address      string
	docs         *document.Service
	reconciler   *syncr.Reconciler
	uploads      *uploads.Service
	mirror       *uploads.ArchiveMirror
	maxBodyBytes int64
	logger       logging.Logger
}

func NewServer(addr string, d *document.Service, r *syncr.Reconciler, u *uploads.Service, m *uploads.ArchiveMirror, maxUploadMB int, l logging.Logger) *Server {
	if maxUploadMB <= 0 {
		maxUploadMB = 512
	}
	return &Server{
		address:      addr,
		docs:         d,
		reconciler:   r,
		uploads:      u,
		mirror:       m,
		maxBodyBytes: int64(maxUploadMB) * 1024 * 1024,
		logger:       l.With("module", "httpapi"),
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/text/state", s.handleTextState)
	mux.HandleFunc("POST /api/text/update", s.handleTextUpdate)
	mux.HandleFunc("GET /api/text/history", s.handleTextHistory)

	mux.HandleFunc("GET /api/uploads", s.handleListUploads)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/upload/zip", s.handleUploadZip)
	mux.HandleFunc("GET /api/download/{id}", s.handleDownload)
	mux.HandleFunc("DELETE /api/admin/upload/{id}", s.handleAdminDelete)

	return mux
}

// Handler returns the routed handler; split out so tests can drive it
// through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), "encode response", "error", err)
	}
}

// writeError maps the core error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrDuplicateUpload):
		status = http.StatusConflict
	case errors.Is(err, common.ErrIngest), errors.Is(err, common.ErrInvalidUploadID):
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
