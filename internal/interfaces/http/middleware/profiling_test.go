package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/backend/internal/infrastructure/telemetry"
)

func capturePprofLabels(c *gin.Context) map[string]string {
	labels := make(map[string]string)
	pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
		labels[key] = value
		return true
	})
	return labels
}

func TestProfilingAppliesRequestLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var labels map[string]string
	router.Use(ProfilingWithConfig(DefaultProfilingConfig()))
	router.GET("/api/v1/ledger/entries/:id", func(c *gin.Context) {
		labels = capturePprofLabels(c)
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/entries/42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "GET", labels[telemetry.ProfilingLabelMethod])
	assert.Equal(t, "/api/v1/ledger/entries/:id", labels[telemetry.ProfilingLabelRoute])
	assert.Equal(t, "ledger", labels[telemetry.ProfilingLabelController])
}

func TestProfilingIncludesTenantFromClaims(t *testing.T) {
	tenantID := uuid.NewString()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(JWTTenantIDKey, tenantID)
		c.Next()
	})
	var labels map[string]string
	router.Use(ProfilingWithConfig(DefaultProfilingConfig()))
	router.GET("/api/v1/invoices", func(c *gin.Context) {
		labels = capturePprofLabels(c)
		c.String(http.StatusOK, "ok")
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil))

	assert.Equal(t, tenantID, labels[telemetry.ProfilingLabelTenantID])
}

func TestProfilingSkipsConfiguredPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var labels map[string]string
	router.Use(ProfilingWithConfig(DefaultProfilingConfig()))
	router.GET("/health", func(c *gin.Context) {
		labels = capturePprofLabels(c)
		c.String(http.StatusOK, "healthy")
	})
	router.GET("/swagger/index.html", func(c *gin.Context) {
		labels = capturePprofLabels(c)
		c.String(http.StatusOK, "docs")
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, labels[telemetry.ProfilingLabelRoute])

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Empty(t, labels[telemetry.ProfilingLabelRoute])
}

func TestProfilingDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var labels map[string]string
	router.Use(ProfilingWithConfig(ProfilingConfig{Enabled: false}))
	router.GET("/api/v1/invoices", func(c *gin.Context) {
		labels = capturePprofLabels(c)
		c.String(http.StatusOK, "ok")
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil))
	assert.Empty(t, labels)
}

func TestControllerFromRoute(t *testing.T) {
	cases := []struct {
		route string
		want  string
	}{
		{"/api/v1/procurement/purchases/:id", "procurement"},
		{"/api/v1/ledger", "ledger"},
		{"/api/v2/ingestion/uploads", "ingestion"},
		{"/health", "health"},
		{"/api/v1/:id", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, controllerFromRoute(tc.route), tc.route)
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("version"))
	assert.False(t, isVersionSegment("invoices"))
}
