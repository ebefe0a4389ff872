package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestLoggerSetsTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewConsoleLogger("http", &buf)
	log.SetLevels(logging.INFO, logging.ERROR)

	r := gin.New()
	r.Use(NewRequestLogger(log, "/health").Handler())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) {
		_, ok := c.Get(TraceIDKey)
		assert.True(t, ok)
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	assert.Empty(t, buf.String(), "тихие пути не попадают в INFO")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "/boom 500")
}

func TestPrometheusMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMiddleware("test_api", reg)
	again := NewPrometheusMiddleware("test_api", reg)
	require.Same(t, pm.reqErrors, again.reqErrors, "повторная регистрация переиспользует коллектор")

	r := gin.New()
	r.Use(pm.Handler())
	pm.RegisterMetricsEndpoint(r)
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "/missing", "404")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_api_http_request_errors_total")
}
