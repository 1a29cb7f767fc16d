package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicware/backend/internal/infrastructure/logger"
)

const (
	// TenantIDKey is the gin context key holding the resolved tenant ID
	TenantIDKey = "tenant_id"
	// TenantCodeKey is the gin context key holding the tenant short code
	TenantCodeKey = "tenant_code"
	// TenantHeaderKey is the header carrying an explicit tenant ID
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantInfo describes a validated tenant
type TenantInfo struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
}

// TenantValidator checks that a tenant exists and is active
type TenantValidator interface {
	ValidateTenant(tenantID string) (*TenantInfo, error)
}

// TenantMiddlewareConfig controls how the tenant is resolved.
// Resolution order is JWT claims, then header, then subdomain.
type TenantMiddlewareConfig struct {
	JWTEnabled       bool
	HeaderEnabled    bool
	SubdomainEnabled bool
	// BaseDomain enables subdomain resolution, e.g. "clinicware.cn"
	// maps "acme.clinicware.cn" to tenant code "acme"
	BaseDomain string
	SkipPaths  []string
	Required   bool
	Validator  TenantValidator
	Logger     *zap.Logger
}

// DefaultTenantConfig resolves from JWT claims and header, requires a
// tenant, and skips the health endpoints
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		JWTEnabled:    true,
		HeaderEnabled: true,
		SkipPaths:     []string{"/health", "/healthz", "/ready", "/metrics"},
		Required:      true,
	}
}

// TenantMiddlewareWithConfig resolves the tenant for each request and
// stamps it into the gin context and the request-scoped logger
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tenantPathSkipped(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		tenantID, source := resolveTenantID(c, cfg)

		// Subdomain labels are tenant codes, not UUIDs, and are only
		// resolvable through a validator
		if tenantID != "" && source != "subdomain" {
			if _, err := uuid.Parse(tenantID); err != nil {
				tenantUnauthorized(c, "Invalid tenant ID format")
				return
			}
		}
		if tenantID == "" && cfg.Required {
			tenantUnauthorized(c, "Tenant identification required")
			return
		}

		var info *TenantInfo
		if tenantID != "" && cfg.Validator != nil {
			var err error
			info, err = cfg.Validator.ValidateTenant(tenantID)
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Warn("Tenant validation failed",
						zap.String("tenant_id", tenantID),
						zap.Error(err),
					)
				}
				tenantUnauthorized(c, "Invalid or inactive tenant")
				return
			}
		}

		if tenantID != "" {
			c.Set(TenantIDKey, tenantID)
			if info != nil {
				c.Set(TenantCodeKey, info.Code)
			}

			ctx := c.Request.Context()
			ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), tenantID)
			c.Request = c.Request.WithContext(ctx)

			if cfg.Logger != nil {
				cfg.Logger.Debug("Tenant identified",
					zap.String("tenant_id", tenantID),
					zap.String("source", source),
				)
			}
		}

		c.Next()
	}
}

// resolveTenantID returns the tenant ID and which source produced it
func resolveTenantID(c *gin.Context, cfg TenantMiddlewareConfig) (string, string) {
	if cfg.JWTEnabled {
		if id := c.GetString(JWTTenantIDKey); id != "" {
			return id, "jwt"
		}
	}
	if cfg.HeaderEnabled {
		if id := c.GetHeader(TenantHeaderKey); id != "" {
			return id, "header"
		}
	}
	if cfg.SubdomainEnabled && cfg.BaseDomain != "" {
		if code := tenantFromSubdomain(c.Request.Host, cfg.BaseDomain); code != "" {
			return code, "subdomain"
		}
	}
	return "", ""
}

func tenantPathSkipped(path string, skipPaths []string) bool {
	for _, skip := range skipPaths {
		if path == skip || strings.HasPrefix(path, skip+"/") {
			return true
		}
	}
	return false
}

// tenantFromSubdomain extracts the leftmost subdomain label under the
// base domain. "www" and the bare base domain resolve to nothing.
func tenantFromSubdomain(host, baseDomain string) string {
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	if !strings.HasSuffix(host, baseDomain) {
		return ""
	}

	subdomain := strings.TrimSuffix(host, "."+baseDomain)
	if subdomain == host || subdomain == "" || subdomain == "www" {
		return ""
	}
	return strings.Split(subdomain, ".")[0]
}

func tenantUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetTenantID returns the resolved tenant ID, or empty when absent
func GetTenantID(c *gin.Context) string {
	return c.GetString(TenantIDKey)
}

// GetTenantUUID returns the resolved tenant ID parsed as a UUID
func GetTenantUUID(c *gin.Context) (uuid.UUID, error) {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(tenantID)
}

// GetTenantCode returns the tenant short code set by a validator
func GetTenantCode(c *gin.Context) string {
	return c.GetString(TenantCodeKey)
}
