package httpapi

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharepad/sharepad/internal/logging"
	"github.com/sharepad/sharepad/internal/server/document"
	repo "github.com/sharepad/sharepad/internal/server/repositories/document"
	syncr "github.com/sharepad/sharepad/internal/server/sync"
	"github.com/sharepad/sharepad/internal/server/uploads"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	docs := document.NewService(repo.NewMemoryRepository(), logger)
	uploadSvc, err := uploads.NewService(t.TempDir(), logger)
	require.NoError(t, err)
	mirror := uploads.NewArchiveMirror(uploadSvc, uploads.S3Config{})

	srv := NewServer(":0", docs, syncr.NewReconciler(docs), uploadSvc, mirror, 32, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestTextStateUpdateHistory(t *testing.T) {
	ts := newTestServer(t)

	var state stateResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/text/state", &state))
	assert.Equal(t, int64(0), state.Version)
	assert.Empty(t, state.Content)

	var upd updateResponse
	status := postJSON(t, ts.URL+"/api/text/update", map[string]string{
		"content":   "hello",
		"client_id": "client-a",
	}, &upd)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, upd.OK)
	assert.Equal(t, int64(1), upd.Version)

	var hist historyResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/text/history?after_version=0", &hist))
	require.Len(t, hist.Items, 1)
	assert.Equal(t, int64(1), hist.Items[0].Version)
	assert.Equal(t, "client-a", hist.Items[0].ClientID)

	status = postJSON(t, ts.URL+"/api/text/update", map[string]string{
		"content":   "hello world",
		"client_id": "client-b",
	}, &upd)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), upd.Version)

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/text/state", &state))
	assert.Equal(t, "hello world", state.Content)
	assert.Equal(t, int64(2), state.Version)

	// watermark advanced past the first entry
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/text/history?after_version=1", &hist))
	require.Len(t, hist.Items, 1)
	assert.Equal(t, "client-b", hist.Items[0].ClientID)
}

func TestTextUpdate_BadJSON(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/text/update", "application/json", bytes.NewReader([]byte("{broken")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func multipartUpload(t *testing.T, files map[string]string, uploadID string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if uploadID != "" {
		require.NoError(t, mw.WriteField("upload_id", uploadID))
	}
	for name, body := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadListDownloadDelete(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartUpload(t, map[string]string{
		"notes/a.txt":     "alpha",
		"notes/sub/b.txt": "beta",
		"notes/c.txt":     "gamma",
	}, "notes-171000")

	resp, err := http.Post(ts.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	var created sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, created.OK)
	assert.Equal(t, "notes-171000", created.Session.ID)
	assert.Equal(t, 3, created.Session.FileCount)
	assert.Equal(t, int64(len("alpha")+len("beta")+len("gamma")), created.Session.SizeBytes)

	var list listResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/uploads", &list))
	require.Len(t, list.Uploads, 1)
	assert.Equal(t, "notes-171000", list.Uploads[0].ID)

	// download returns a zip with the original relative paths
	dl, err := http.Get(ts.URL + "/api/download/notes-171000")
	require.NoError(t, err)
	defer dl.Body.Close()
	require.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Equal(t, "application/zip", dl.Header.Get("Content-Type"))

	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"notes/a.txt", "notes/sub/b.txt", "notes/c.txt"}, names)

	// admin delete, then the session is gone
	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/admin/upload/notes-171000", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/uploads", &list))
	assert.Empty(t, list.Uploads)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpload_TraversalRejected(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartUpload(t, map[string]string{
		"../escape.txt": "evil",
	}, "bad")

	resp, err := http.Post(ts.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var list listResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/uploads", &list))
	assert.Empty(t, list.Uploads)
}

func TestUpload_DuplicateIDConflicts(t *testing.T) {
	ts := newTestServer(t)

	for i, wantStatus := range []int{http.StatusOK, http.StatusConflict} {
		body, contentType := multipartUpload(t, map[string]string{"a.txt": "x"}, "dup")
		resp, err := http.Post(ts.URL+"/api/upload", contentType, body)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, wantStatus, resp.StatusCode, "attempt %d", i)
	}
}

func TestUploadZip(t *testing.T) {
	ts := newTestServer(t)

	var zipBuf bytes.Buffer
	zw := zip.NewWriter(&zipBuf)
	fw, err := zw.Create("inner/file.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("zipped"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("upload_id", "zip-171000"))
	part, err := mw.CreateFormFile("zip_file", "batch.zip")
	require.NoError(t, err)
	_, err = part.Write(zipBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/upload/zip", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	var created sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, created.Session.FileCount)
	assert.Equal(t, int64(len("zipped")), created.Session.SizeBytes)
}

func TestUploadZip_Corrupt(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("zip_file", "bad.zip")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a zip at all"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/upload/zip", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var list listResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/uploads", &list))
	assert.Empty(t, list.Uploads)
}

func TestDownload_UnknownID(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/download/never-was")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	var out map[string]string
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", &out))
	assert.Equal(t, "ok", out["status"])
}

// encrypted content passes through the server untouched: it stores and
// returns the envelope bytes without parsing them
func TestOpaqueContentRelay(t *testing.T) {
	ts := newTestServer(t)

	sealed := `{"iv":"AAAAAAAAAAAAAAAA","ct":"ZmFrZS1jaXBoZXJ0ZXh0"}`
	var upd updateResponse
	status := postJSON(t, ts.URL+"/api/text/update", map[string]string{
		"content":   sealed,
		"client_id": "client-e2e",
	}, &upd)
	require.Equal(t, http.StatusOK, status)

	var state stateResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/text/state", &state))
	assert.Equal(t, sealed, state.Content)
}

// the multipart filename carries the relative path; an id is derived
// from the top-level folder when none is supplied
func TestUpload_DerivedID(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartUpload(t, map[string]string{"notes/a.txt": "x"}, "")
	resp, err := http.Post(ts.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	var created sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, created.OK)
	assert.Contains(t, created.Session.ID, "notes-")
	assert.Equal(t, 1, created.Session.FileCount)
}
