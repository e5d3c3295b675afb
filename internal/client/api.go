// Package client implements the sharepad client side of the polling
// protocol: the HTTP API client, the fixed-interval poller with its
// client-held version watermark, the edit debouncer, and a syncer that
// mirrors one local text file against the shared document.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// State is the atomically-read document snapshot. Content may be an
// encryption envelope; the API client does not interpret it.
type State struct {
	Content string `json:"content"`
	Version int64  `json:"version"`
}

// HistoryEntry mirrors one accepted write as reported by the server.
type HistoryEntry struct {
	Version   int64     `json:"version"`
	ClientID  string    `json:"client_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HTTPError carries a non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *API) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(b))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// PollState fetches the current document state.
func (a *API) PollState(ctx context.Context) (State, error) {
	var s State
	err := a.getJSON(ctx, "/api/text/state", &s)
	return s, err
}

// PollHistory fetches history entries with version > after.
func (a *API) PollHistory(ctx context.Context, after int64) ([]HistoryEntry, error) {
	var out struct {
		Items []HistoryEntry `json:"items"`
	}
	path := "/api/text/history?after_version=" + url.QueryEscape(strconv.FormatInt(after, 10))
	if err := a.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Update writes new content attributed to clientID and returns the
// accepted version.
func (a *API) Update(ctx context.Context, content string, clientID string) (int64, error) {
	body, err := json.Marshal(map[string]string{
		"content":   content,
		"client_id": clientID,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/text/update", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return 0, &HTTPError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(b))}
	}

	var out struct {
		Version int64 `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Version, nil
}
