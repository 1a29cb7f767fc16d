package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc, route gin.HandlerFunc, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(handler)
	r.GET("/ping", route)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGinMiddlewareLogsRequest(t *testing.T) {
	log, logs := observedLogger()

	w := performRequest(GinMiddleware(log), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	}, "/ping?verbose=1")

	assert.Equal(t, http.StatusOK, w.Code)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "HTTP Request", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/ping", fields["path"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "verbose=1", fields["query"])
}

func TestGinMiddlewareLevelsByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusNotFound, "warn"},
		{http.StatusBadGateway, "error"},
	}

	for _, tt := range tests {
		log, logs := observedLogger()
		performRequest(GinMiddleware(log), func(c *gin.Context) {
			c.Status(tt.status)
		}, "/ping")

		entries := logs.All()
		require.Len(t, entries, 1, "status %d", tt.status)
		assert.Equal(t, tt.level, entries[0].Level.String(), "status %d", tt.status)
	}
}

func TestGinMiddlewareAttachesRequestLogger(t *testing.T) {
	log, logs := observedLogger()

	performRequest(GinMiddleware(log), func(c *gin.Context) {
		FromContext(c.Request.Context()).Info("from handler")
		c.Status(http.StatusNoContent)
	}, "/ping")

	var found bool
	for _, e := range logs.All() {
		if e.Message == "from handler" {
			found = true
			assert.Equal(t, "/ping", e.ContextMap()["path"])
		}
	}
	assert.True(t, found, "handler log entry missing")
}

func TestRecovery(t *testing.T) {
	log, logs := observedLogger()

	w := performRequest(Recovery(log), func(c *gin.Context) {
		panic("boom")
	}, "/ping")

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Panic recovered", entries[0].Message)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
}
