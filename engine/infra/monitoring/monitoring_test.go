package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systragroup/SG-DataDashboard/pkg/config"
)

type fakeCounter struct {
	visible, hidden int
	err             error
}

func (f fakeCounter) Count(context.Context) (int, int, error) {
	return f.visible, f.hidden, f.err
}

func enabledConfig() config.MonitoringConfig {
	return config.MonitoringConfig{Enabled: true, Path: "/metrics"}
}

func scrape(t *testing.T, s *Service) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	s.ExporterHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	return w.Code, w.Body.String()
}

func TestNewMonitoringService(t *testing.T) {
	t.Run("Should return a no-op service when disabled", func(t *testing.T) {
		s, err := NewMonitoringService(context.Background(), config.MonitoringConfig{Path: "/metrics"})
		require.NoError(t, err)
		assert.False(t, s.IsInitialized())
		s.RecordUpload("zones", UploadSuccess)
		require.NoError(t, s.RegisterStudyCounter(fakeCounter{}))
		code, body := scrape(t, s)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body, "not initialized")
	})
	t.Run("Should expose go runtime metrics when enabled", func(t *testing.T) {
		s, err := NewMonitoringService(context.Background(), enabledConfig())
		require.NoError(t, err)
		assert.True(t, s.IsInitialized())
		assert.Equal(t, "/metrics", s.Path())
		code, body := scrape(t, s)
		assert.Equal(t, http.StatusOK, code)
		assert.Contains(t, body, "go_goroutines")
	})
}

func TestService_RecordUpload(t *testing.T) {
	t.Run("Should count uploads by kind and result", func(t *testing.T) {
		s, err := NewMonitoringService(context.Background(), enabledConfig())
		require.NoError(t, err)
		s.RecordUpload("zones", UploadSuccess)
		s.RecordUpload("zones", UploadSuccess)
		s.RecordUpload("outline", UploadFailure)
		assert.Equal(t, 2.0, testutil.ToFloat64(s.uploads.WithLabelValues("zones", UploadSuccess)))
		assert.Equal(t, 1.0, testutil.ToFloat64(s.uploads.WithLabelValues("outline", UploadFailure)))
	})
}

func TestService_RegisterStudyCounter(t *testing.T) {
	t.Run("Should report visible and hidden studies at scrape time", func(t *testing.T) {
		s, err := NewMonitoringService(context.Background(), enabledConfig())
		require.NoError(t, err)
		require.NoError(t, s.RegisterStudyCounter(fakeCounter{visible: 3, hidden: 1}))
		_, body := scrape(t, s)
		assert.Contains(t, body, `sgdash_studies{visibility="visible"} 3`)
		assert.Contains(t, body, `sgdash_studies{visibility="hidden"} 1`)
	})
	t.Run("Should reject a second registration", func(t *testing.T) {
		s, err := NewMonitoringService(context.Background(), enabledConfig())
		require.NoError(t, err)
		require.NoError(t, s.RegisterStudyCounter(fakeCounter{}))
		assert.Error(t, s.RegisterStudyCounter(fakeCounter{}))
	})
	t.Run("Should fail the scrape when counting fails", func(t *testing.T) {
		s, err := NewMonitoringService(context.Background(), enabledConfig())
		require.NoError(t, err)
		require.NoError(t, s.RegisterStudyCounter(fakeCounter{err: errors.New("db closed")}))
		code, _ := scrape(t, s)
		assert.Equal(t, http.StatusInternalServerError, code)
	})
}

func TestService_GinMiddleware(t *testing.T) {
	t.Run("Should label requests by route template", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		s, err := NewMonitoringService(context.Background(), enabledConfig())
		require.NoError(t, err)
		r := gin.New()
		r.Use(s.GinMiddleware())
		r.GET("/study/:study", func(c *gin.Context) { c.Status(http.StatusOK) })
		for _, id := range []string{"a", "b"} {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/study/"+id, http.NoBody))
			require.Equal(t, http.StatusOK, w.Code)
		}
		_, body := scrape(t, s)
		assert.Contains(t, body,
			`sgdash_http_requests_total{method="GET",path="/study/:study",status_code="200"} 2`)
		assert.False(t, strings.Contains(body, `path="/study/a"`))
	})
}
