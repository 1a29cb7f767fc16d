package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clinicware/backend/internal/infrastructure/auth"
	"github.com/clinicware/backend/internal/infrastructure/logger"
)

// Context keys populated by the JWT middleware
const (
	JWTClaimsKey       = "jwt_claims"
	JWTUserIDKey       = "jwt_user_id"
	JWTTenantIDKey     = "jwt_tenant_id"
	JWTUsernameKey     = "jwt_username"
	JWTCapabilitiesKey = "jwt_capabilities"

	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig configures token authentication
type JWTMiddlewareConfig struct {
	// JWTService validates access tokens; required
	JWTService *auth.JWTService
	// TokenBlacklist, when set, rejects individually revoked tokens by JTI
	TokenBlacklist auth.TokenBlacklist
	// SkipPaths and SkipPathPrefixes bypass authentication entirely
	SkipPaths        []string
	SkipPathPrefixes []string
	// OnError replaces the default 401 response
	OnError func(c *gin.Context, err error)
	Logger  *zap.Logger
}

// DefaultJWTConfig skips the health, metrics and docs endpoints
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
			"/api/v1/health",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api-docs",
		},
	}
}

// JWTAuthMiddleware authenticates requests with the default configuration
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig authenticates requests by validating the
// bearer token and stamps the claims into the gin and request contexts
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authPathSkipped(c.Request.URL.Path, cfg) {
			c.Next()
			return
		}

		token, err := bearerToken(c)
		if err != nil {
			rejectUnauthenticated(c, cfg, err)
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			rejectUnauthenticated(c, cfg, err)
			return
		}

		if revoked := tokenRevoked(c, cfg, claims); revoked {
			rejectUnauthenticated(c, cfg, auth.ErrTokenBlacklisted)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTTenantIDKey, claims.TenantID)
		c.Set(JWTUsernameKey, claims.Username)
		c.Set(JWTCapabilitiesKey, claims.Capabilities)

		// Stamp identity onto the request-scoped logger as well
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, _ = logger.WithUserID(ctx, log, claims.UserID)
		ctx, _ = logger.WithTenantID(ctx, log, claims.TenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func authPathSkipped(path string, cfg JWTMiddlewareConfig) bool {
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

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", auth.ErrInvalidToken
	}
	token := strings.TrimPrefix(header, BearerPrefix)
	if token == "" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}

// tokenRevoked consults the blacklist when one is configured. A
// blacklist lookup failure fails open; dropping every authenticated
// request on a Redis hiccup is worse than honoring a revoked token
// for its remaining lifetime.
func tokenRevoked(c *gin.Context, cfg JWTMiddlewareConfig, claims *auth.Claims) bool {
	if cfg.TokenBlacklist == nil || claims.ID == "" {
		return false
	}

	revoked, err := cfg.TokenBlacklist.IsBlacklisted(c.Request.Context(), claims.ID)
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Error("token blacklist check failed",
				zap.String("jti", claims.ID),
				zap.Error(err))
		}
		return false
	}
	return revoked
}

func rejectUnauthenticated(c *gin.Context, cfg JWTMiddlewareConfig, err error) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}

	if cfg.Logger != nil {
		cfg.Logger.Warn("authentication failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code, message := "UNAUTHORIZED", "Authentication required"
	switch err {
	case auth.ErrExpiredToken:
		code, message = "TOKEN_EXPIRED", "Token has expired"
	case auth.ErrInvalidToken:
		code, message = "INVALID_TOKEN", "Invalid token"
	case auth.ErrTokenNotYetValid:
		code, message = "TOKEN_NOT_VALID", "Token is not yet valid"
	case auth.ErrTokenBlacklisted:
		code, message = "TOKEN_REVOKED", "Token has been revoked"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// GetJWTClaims returns the validated claims, or nil before authentication
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetJWTUserID returns the authenticated user ID, or empty
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetJWTTenantID returns the tenant ID from the claims, or empty
func GetJWTTenantID(c *gin.Context) string {
	return c.GetString(JWTTenantIDKey)
}

// GetJWTUsername returns the username from the claims, or empty
func GetJWTUsername(c *gin.Context) string {
	return c.GetString(JWTUsernameKey)
}

// GetJWTCapabilities returns the capability list from the claims
func GetJWTCapabilities(c *gin.Context) []string {
	if v, ok := c.Get(JWTCapabilitiesKey); ok {
		if caps, ok := v.([]string); ok {
			return caps
		}
	}
	return nil
}
