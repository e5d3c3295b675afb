package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sharepad/sharepad/internal/server/models"
)

type stateResponse struct {
	Content string `json:"content"`
	Version int64  `json:"version"`
}

type updateRequest struct {
	Content  string `json:"content"`
	ClientID string `json:"client_id"`
}

type updateResponse struct {
	OK      bool  `json:"ok"`
	Version int64 `json:"version"`
}

type historyResponse struct {
	Items []models.HistoryEntry `json:"items"`
}

func (s *Server) handleTextState(w http.ResponseWriter, r *http.Request) {
	last := parseVersionParam(r, "last_version", 0)

	state, err := s.reconciler.PollState(r.Context(), last)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stateResponse{
		Content: string(state.Content),
		Version: state.Version,
	})
}

func (s *Server) handleTextUpdate(w http.ResponseWriter, r *http.Request) {
	var body updateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes)).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json: " + err.Error()})
		return
	}

	version, err := s.docs.Write(r.Context(), []byte(body.Content), body.ClientID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updateResponse{OK: true, Version: version})
}

func (s *Server) handleTextHistory(w http.ResponseWriter, r *http.Request) {
	after := parseVersionParam(r, "after_version", 0)

	items, err := s.reconciler.PollHistory(r.Context(), after)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if items == nil {
		items = []models.HistoryEntry{}
	}
	s.writeJSON(w, http.StatusOK, historyResponse{Items: items})
}

func parseVersionParam(r *http.Request, name string, def int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
