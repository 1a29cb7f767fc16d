package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDContextKey is the gin context key carrying the request ID
const RequestIDContextKey = "request_id"

// CORSConfig holds the cross-origin policy. Zero-valued list fields
// fall back to the defaults when passed to CORSWithConfig.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig leaves AllowOrigins empty, which rejects all
// cross-origin requests until origins are configured explicitly
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID", "Accept", "Origin", "Cache-Control"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS handles cross-origin requests with the default configuration
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

// corsPolicy is the precomputed form of a CORSConfig, with header
// values joined once instead of on every request
type corsPolicy struct {
	origins          []string
	wildcard         bool
	allowCredentials bool
	allowMethods     string
	allowHeaders     string
	exposeHeaders    string
	maxAge           string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	defaults := DefaultCORSConfig()
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = defaults.AllowMethods
	}
	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = defaults.AllowHeaders
	}
	if len(cfg.ExposeHeaders) == 0 {
		cfg.ExposeHeaders = defaults.ExposeHeaders
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = defaults.MaxAge
	}

	policy := corsPolicy{
		origins:          cfg.AllowOrigins,
		allowCredentials: cfg.AllowCredentials,
		allowMethods:     strings.Join(cfg.AllowMethods, ", "),
		allowHeaders:     strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders:    strings.Join(cfg.ExposeHeaders, ", "),
		maxAge:           strconv.Itoa(int(cfg.MaxAge.Seconds())),
	}
	for _, origin := range cfg.AllowOrigins {
		if origin == "*" {
			policy.wildcard = true
			break
		}
	}
	return policy
}

// resolveOrigin returns the Access-Control-Allow-Origin value for the
// request origin, or empty when the origin is not allowed
func (p corsPolicy) resolveOrigin(origin string) string {
	if p.wildcard {
		return "*"
	}
	for _, allowed := range p.origins {
		if allowed == origin {
			return origin
		}
	}
	return ""
}

func (p corsPolicy) writeHeaders(c *gin.Context, allowedOrigin string) {
	header := c.Writer.Header()
	header.Set("Access-Control-Allow-Origin", allowedOrigin)
	// Browsers reject credentials combined with the wildcard origin
	if p.allowCredentials && allowedOrigin != "*" {
		header.Set("Access-Control-Allow-Credentials", "true")
	}
	header.Set("Access-Control-Allow-Methods", p.allowMethods)
	header.Set("Access-Control-Allow-Headers", p.allowHeaders)
	if p.exposeHeaders != "" {
		header.Set("Access-Control-Expose-Headers", p.exposeHeaders)
	}
	if p.maxAge != "0" {
		header.Set("Access-Control-Max-Age", p.maxAge)
	}
}

// CORSWithConfig handles cross-origin requests with a custom policy.
// Preflight OPTIONS requests always get 204 so they never surface as
// 404, but CORS headers are only written for allowed origins.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)

	return func(c *gin.Context) {
		allowedOrigin := policy.resolveOrigin(c.Request.Header.Get("Origin"))

		if c.Request.Method == http.MethodOptions {
			if allowedOrigin != "" {
				policy.writeHeaders(c, allowedOrigin)
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if allowedOrigin != "" {
			policy.writeHeaders(c, allowedOrigin)
		}
		c.Next()
	}
}

// RequestID tags each request with an ID, honoring one supplied by the
// caller, and echoes it in the response header
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDContextKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// SecurityConfig controls the hardening headers added to responses
type SecurityConfig struct {
	HSTSEnabled           bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	CSPEnabled   bool
	CSPDirective string

	PermissionsPolicyEnabled   bool
	PermissionsPolicyDirective string
}

// DefaultSecurityConfig keeps HSTS off since it only makes sense once
// the deployment terminates TLS
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSEnabled:           false,
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		HSTSPreload:           false,

		CSPEnabled:   true,
		CSPDirective: "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self' data:; connect-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'",

		PermissionsPolicyEnabled:   true,
		PermissionsPolicyDirective: "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()",
	}
}

// Secure adds security headers using the default configuration
func Secure() gin.HandlerFunc {
	return SecureWithConfig(DefaultSecurityConfig())
}

// SecureWithConfig adds clickjacking, MIME-sniffing, referrer, CSP,
// HSTS and Permissions-Policy headers per the given configuration
func SecureWithConfig(cfg SecurityConfig) gin.HandlerFunc {
	var hstsValue string
	if cfg.HSTSEnabled {
		hstsValue = fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hstsValue += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hstsValue += "; preload"
		}
	}

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("X-Frame-Options", "DENY")
		header.Set("X-XSS-Protection", "1; mode=block")
		header.Set("X-Content-Type-Options", "nosniff")
		header.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if cfg.CSPEnabled && cfg.CSPDirective != "" {
			header.Set("Content-Security-Policy", cfg.CSPDirective)
		}
		if hstsValue != "" {
			header.Set("Strict-Transport-Security", hstsValue)
		}
		if cfg.PermissionsPolicyEnabled && cfg.PermissionsPolicyDirective != "" {
			header.Set("Permissions-Policy", cfg.PermissionsPolicyDirective)
		}

		c.Next()
	}
}
