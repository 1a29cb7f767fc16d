package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clinicware/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig controls which requests get profiling labels
type ProfilingConfig struct {
	Enabled          bool
	SkipPaths        []string
	SkipPathPrefixes []string
}

// DefaultProfilingConfig skips the health and documentation endpoints
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/health", "/healthz", "/ready", "/metrics"},
		SkipPathPrefixes: []string{"/swagger", "/api-docs"},
	}
}

// Profiling returns the profiling middleware with default configuration
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig tags each request's goroutines with pprof labels
// (controller, route, method, tenant_id) so Pyroscope can slice
// profiles by those dimensions. Labels use the route pattern, never
// the raw path, to keep cardinality bounded.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if profilingPathSkipped(c.Request.URL.Path, cfg) {
			c.Next()
			return
		}

		route := c.FullPath()
		labels := telemetry.HTTPRequestLabels(
			controllerFromRoute(route),
			route,
			c.Request.Method,
			traceTenantID(c),
		)

		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingPathSkipped(path string, cfg ProfilingConfig) bool {
	for _, skip := range cfg.SkipPaths {
		if path == skip {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// controllerFromRoute names the resource a route serves, e.g.
// "/api/v1/procurement/purchases/:id" yields "procurement"
func controllerFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) {
			continue
		}
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "{") {
			continue
		}
		return part
	}
	return ""
}

// isVersionSegment reports whether a path segment looks like an API
// version, e.g. "v1" or "v12"
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
