// Package middleware provides the HTTP middleware for the Clinicware backend.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps request IDs taken from headers so oversized
// values never land in trace attributes
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns the default tracing configuration
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "clinicware-backend",
		Enabled:     true,
	}
}

// Tracing returns the tracing middleware with default configuration
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin and enriches the server span with
// request, tenant and user identifiers. Enrichment runs after the
// inner handlers, so attributes set by the auth middleware are visible.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	otelMiddleware := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		otelMiddleware(c)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetAttributes(requestSpanAttributes(c)...)
		}
	}
}

// requestSpanAttributes collects the identity attributes present on
// the request, omitting the ones that are absent
func requestSpanAttributes(c *gin.Context) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if requestID := traceRequestID(c); requestID != "" {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}
	if tenantID := traceTenantID(c); tenantID != "" {
		attrs = append(attrs, attribute.String("tenant_id", tenantID))
	}
	if userID := traceUserID(c); userID != "" {
		attrs = append(attrs, attribute.String("user_id", userID))
	}
	return attrs
}

// traceRequestID prefers the ID minted by the RequestID middleware and
// falls back to the inbound header, truncated to a sane length
func traceRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDContextKey); id != "" {
		return id
	}
	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// traceTenantID trusts JWT claims first. The header fallback covers
// unauthenticated requests and must parse as a UUID, so arbitrary
// header content cannot reach trace storage.
func traceTenantID(c *gin.Context) string {
	if id := c.GetString(JWTTenantIDKey); id != "" {
		return id
	}
	headerTenantID := c.GetHeader(TenantHeaderKey)
	if headerTenantID == "" {
		return ""
	}
	if _, err := uuid.Parse(headerTenantID); err != nil {
		return ""
	}
	return headerTenantID
}

func traceUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// SpanErrorMarker marks the server span as errored for 4xx and 5xx
// responses. Place it after the Tracing middleware.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}

		span.SetStatus(codes.Error, statusErrorMessage(statusCode))
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
}

func statusErrorMessage(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return "Internal Server Error"
	case statusCode == http.StatusUnauthorized:
		return "Unauthorized"
	case statusCode == http.StatusForbidden:
		return "Forbidden"
	case statusCode == http.StatusNotFound:
		return "Not Found"
	default:
		return "Client Error"
	}
}
