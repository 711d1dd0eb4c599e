package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systragroup/SG-DataDashboard/pkg/config"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	state, cleanup, err := SetupDependencies(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	srv, err := NewServer(ctx, cfg, state)
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestSetupDependencies(t *testing.T) {
	t.Run("Should create the catalog under the data directory", func(t *testing.T) {
		srv := newTestServer(t, nil)
		assert.Equal(t, filepath.Join(srv.Config.Storage.DataDir, "studies.db"), srv.state.Catalog.Path())
		assert.FileExists(t, srv.state.Catalog.Path())
	})
	t.Run("Should fail when the data directory is a file", func(t *testing.T) {
		cfg := config.Default()
		dir := t.TempDir()
		cfg.Storage.DataDir = filepath.Join(dir, "studies.db")
		require.NoError(t, os.WriteFile(cfg.Storage.DataDir, []byte("x"), 0o600))
		_, _, err := SetupDependencies(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestServerRoutes(t *testing.T) {
	t.Run("Should report health after pinging the catalog", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})
	t.Run("Should expose metrics with the study gauge", func(t *testing.T) {
		srv := newTestServer(t, nil)
		serve(srv, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `sgdash_studies{visibility="hidden"} 0`)
		assert.Contains(t, w.Body.String(), `sgdash_http_requests_total{method="GET",path="/health",status_code="200"} 1`)
	})
	t.Run("Should not mount metrics when monitoring is disabled", func(t *testing.T) {
		srv := newTestServer(t, func(cfg *config.Config) { cfg.Monitoring.Enabled = false })
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("Should serve embedded scripts", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/static/js/study.js", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "visibilityButton")
	})
	t.Run("Should render the dashboard", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Dashboard")
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Should echo or assign a request id", func(t *testing.T) {
		srv := newTestServer(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
		req.Header.Set(requestIDHeader, "abc-123")
		assert.Equal(t, "abc-123", serve(srv, req).Header().Get(requestIDHeader))
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		assert.Len(t, w.Header().Get(requestIDHeader), 36)
	})
	t.Run("Should answer preflight requests when CORS is enabled", func(t *testing.T) {
		srv := newTestServer(t, func(cfg *config.Config) { cfg.Server.CORSEnabled = true })
		w := serve(srv, httptest.NewRequest(http.MethodOptions, "/datajs/studies", http.NoBody))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
	t.Run("Should not add CORS headers by default", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/datajs/studies", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
