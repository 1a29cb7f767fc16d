package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CapabilityConfig holds configuration for capability middleware
type CapabilityConfig struct {
	// Logger for middleware logging
	Logger *zap.Logger
	// OnDenied is called when access is denied (optional)
	OnDenied func(c *gin.Context, requiredCaps []string)
}

// RequireCapability creates middleware that requires a specific capability
// (e.g. "purchases:receive"). This is a convenience function for a single
// capability requirement.
func RequireCapability(capability string) gin.HandlerFunc {
	return RequireAnyCapability(capability)
}

// RequireCapabilityWithConfig creates middleware with custom config
func RequireCapabilityWithConfig(capability string, cfg CapabilityConfig) gin.HandlerFunc {
	return RequireAnyCapabilityWithConfig(cfg, capability)
}

// RequireAnyCapability creates middleware that requires any of the specified
// capabilities. The caller must hold at least one to proceed.
func RequireAnyCapability(capabilities ...string) gin.HandlerFunc {
	return RequireAnyCapabilityWithConfig(CapabilityConfig{}, capabilities...)
}

// RequireAnyCapabilityWithConfig creates middleware that requires any of the
// specified capabilities with custom config
func RequireAnyCapabilityWithConfig(cfg CapabilityConfig, capabilities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			handleCapabilityDenied(c, cfg, capabilities, "No authentication claims found")
			return
		}

		if !claims.HasAnyCapability(capabilities...) {
			handleCapabilityDenied(c, cfg, capabilities, "Caller lacks required capability")
			return
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug("Capability check passed",
				zap.String("user_id", claims.UserID),
				zap.Strings("required_any", capabilities),
				zap.Strings("capabilities", claims.Capabilities),
			)
		}

		c.Next()
	}
}

// RequireAllCapabilities creates middleware that requires every listed
// capability to proceed
func RequireAllCapabilities(capabilities ...string) gin.HandlerFunc {
	return RequireAllCapabilitiesWithConfig(CapabilityConfig{}, capabilities...)
}

// RequireAllCapabilitiesWithConfig creates middleware that requires all
// capabilities with custom config
func RequireAllCapabilitiesWithConfig(cfg CapabilityConfig, capabilities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			handleCapabilityDenied(c, cfg, capabilities, "No authentication claims found")
			return
		}

		for _, capability := range capabilities {
			if !claims.HasCapability(capability) {
				handleCapabilityDenied(c, cfg, capabilities, "Caller lacks one or more required capabilities")
				return
			}
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug("All capabilities check passed",
				zap.String("user_id", claims.UserID),
				zap.Strings("required_all", capabilities),
				zap.Strings("capabilities", claims.Capabilities),
			)
		}

		c.Next()
	}
}

// RequireResource creates middleware that checks a capability for a resource
// with the action derived from the HTTP method:
// - GET -> read
// - POST -> create
// - PUT/PATCH -> update
// - DELETE -> delete
func RequireResource(resource string) gin.HandlerFunc {
	return RequireResourceWithConfig(resource, CapabilityConfig{})
}

// RequireResourceWithConfig creates middleware with custom config
func RequireResourceWithConfig(resource string, cfg CapabilityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		action := methodToAction(c.Request.Method)
		capability := resource + ":" + action

		claims := GetJWTClaims(c)
		if claims == nil {
			handleCapabilityDenied(c, cfg, []string{capability}, "No authentication claims found")
			return
		}

		if !claims.HasCapability(capability) {
			handleCapabilityDenied(c, cfg, []string{capability}, "Caller lacks required capability for resource")
			return
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug("Resource capability check passed",
				zap.String("user_id", claims.UserID),
				zap.String("resource", resource),
				zap.String("action", action),
				zap.String("capability", capability),
			)
		}

		c.Next()
	}
}

// RequireResourceAction creates middleware that checks a specific
// resource:action capability
func RequireResourceAction(resource, action string) gin.HandlerFunc {
	return RequireCapability(resource + ":" + action)
}

// methodToAction converts HTTP method to capability action
func methodToAction(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// handleCapabilityDenied handles denied access
func handleCapabilityDenied(c *gin.Context, cfg CapabilityConfig, requiredCaps []string, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, requiredCaps)
		return
	}

	if cfg.Logger != nil {
		claims := GetJWTClaims(c)
		userID := ""
		userCaps := []string{}
		if claims != nil {
			userID = claims.UserID
			userCaps = claims.Capabilities
		}

		cfg.Logger.Warn("Capability denied",
			zap.String("reason", reason),
			zap.String("user_id", userID),
			zap.Strings("required_capabilities", requiredCaps),
			zap.Strings("capabilities", userCaps),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_FORBIDDEN",
			"message": "Access denied: insufficient capabilities",
		},
	})
}

// HasCapability is a helper to check a capability inside handlers
func HasCapability(c *gin.Context, capability string) bool {
	claims := GetJWTClaims(c)
	if claims == nil {
		return false
	}
	return claims.HasCapability(capability)
}

// HasAnyCapability is a helper to check if the caller holds any of the capabilities
func HasAnyCapability(c *gin.Context, capabilities ...string) bool {
	claims := GetJWTClaims(c)
	if claims == nil {
		return false
	}
	return claims.HasAnyCapability(capabilities...)
}

// MustHaveCapability aborts the request if the caller lacks the capability.
// Returns true if the caller holds it, false if aborted.
func MustHaveCapability(c *gin.Context, capability string) bool {
	if !HasCapability(c, capability) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ERR_FORBIDDEN",
				"message": "Access denied: insufficient capabilities",
			},
		})
		return false
	}
	return true
}
