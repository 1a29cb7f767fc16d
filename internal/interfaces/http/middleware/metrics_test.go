package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/clinicware/backend/internal/infrastructure/telemetry"
)

func newMetricsRouter(t *testing.T, pre ...gin.HandlerFunc) (*gin.Engine, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(pre...)
	router.Use(HTTPMetricsWithMeter(provider.Meter("http.server"), true))
	router.GET("/api/v1/invoices/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "invoice body")
	})
	router.POST("/api/v1/invoices", func(c *gin.Context) {
		c.String(http.StatusCreated, "created")
	})
	return router, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %q not collected", name)
	return metricdata.Metrics{}
}

func TestHTTPMetricsCountsRequests(t *testing.T) {
	router, reader := newMetricsRouter(t)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/abc", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	m := findMetric(t, reader, "http_server_request_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	dp := sum.DataPoints[0]
	assert.Equal(t, int64(3), dp.Value)
	route, _ := dp.Attributes.Value(telemetry.AttrHTTPRoute)
	assert.Equal(t, "/api/v1/invoices/:id", route.AsString())
	status, _ := dp.Attributes.Value(telemetry.AttrHTTPStatusCode)
	assert.Equal(t, int64(http.StatusOK), status.AsInt64())
}

func TestHTTPMetricsRecordsDurationAndSizes(t *testing.T) {
	router, reader := newMetricsRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(`{"supplier":"acme"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	duration := findMetric(t, reader, "http_server_request_duration_seconds")
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	reqSize := findMetric(t, reader, "http_server_request_size_bytes")
	reqHist, ok := reqSize.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, reqHist.DataPoints, 1)
	assert.Equal(t, float64(19), reqHist.DataPoints[0].Sum)

	respSize := findMetric(t, reader, "http_server_response_size_bytes")
	respHist, ok := respSize.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, respHist.DataPoints, 1)
	assert.Equal(t, float64(len("created")), respHist.DataPoints[0].Sum)
}

func TestHTTPMetricsTenantAttribute(t *testing.T) {
	tenantID := uuid.NewString()
	claims := func(c *gin.Context) {
		c.Set(JWTTenantIDKey, tenantID)
		c.Next()
	}
	router, reader := newMetricsRouter(t, claims)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/invoices/abc", nil))

	m := findMetric(t, reader, "http_server_request_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	tenant, found := sum.DataPoints[0].Attributes.Value(telemetry.AttrTenantID)
	require.True(t, found)
	assert.Equal(t, tenantID, tenant.AsString())
}

func TestHTTPMetricsUnmatchedRoute(t *testing.T) {
	router, reader := newMetricsRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	m := findMetric(t, reader, "http_server_request_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	route, _ := sum.DataPoints[0].Attributes.Value(telemetry.AttrHTTPRoute)
	assert.Equal(t, "unknown", route.AsString())
}

func TestHTTPMetricsDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMetrics(HTTPMetricsConfig{Enabled: false}))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
