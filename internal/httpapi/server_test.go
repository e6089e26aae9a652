package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualitygate/internal/analysis/adapter"
	"qualitygate/internal/analysis/notifier"
	"qualitygate/internal/analysis/session"
	"qualitygate/internal/config"
	"qualitygate/internal/logging"
	"qualitygate/internal/registry"
	"qualitygate/internal/websocket"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logging.NewTestLogger()
	n := notifier.New(log)
	reg := adapter.NewRegistry()
	controller := session.New(n, reg, log, nil)
	projects, err := registry.Open(filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { projects.Close() })
	wsHandler := websocket.NewHandler(n, nil, log, nil)

	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 0}}
	return New(Deps{
		Config:     cfg,
		Controller: controller,
		Projects:   projects,
		WS:         wsHandler,
		Log:        log,
	})
}

func TestHandleListTools(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var tools []map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tools))
	assert.NotEmpty(t, tools)
}

func TestHandleRunAnalysisRejectsMissingProjectID(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"project_path": "/tmp"})
	req := httptest.NewRequest(http.MethodPost, "/api/run-analysis", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleRunAnalysisAcceptsDirectPath(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	body, _ := json.Marshal(map[string]any{
		"project_id":   "proj1",
		"project_path": dir,
		"mode":         "full",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/run-analysis", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
}

func TestHandleRunAnalysisNotFoundForUnregisteredProjectID(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"project_id": "ghost"})
	req := httptest.NewRequest(http.MethodPost, "/api/run-analysis", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleStopOnInactiveSessionReturnsNotFoundStatus(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"project_id": "ghost"})
	req := httptest.NewRequest(http.MethodPost, "/api/stop-analysis", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp["status"])
}

func TestHandleBrowseListsSubdirectories(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	require.NoError(t, mkdirChild(dir, "a"))
	require.NoError(t, mkdirChild(dir, "b"))

	req := httptest.NewRequest(http.MethodGet, "/api/browse?path="+dir, nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp browseResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Entries, 2)
}

func TestHandleBrowseRejectsRelativePath(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/browse?path=relative/dir", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthzReportsOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func mkdirChild(parent, name string) error {
	return os.Mkdir(filepath.Join(parent, name), 0o755)
}
