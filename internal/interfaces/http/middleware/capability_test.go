package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/clinicware/backend/internal/infrastructure/auth"
)

func setClaims(capabilities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(JWTClaimsKey, &auth.Claims{
			UserID:       "user-1",
			TenantID:     "tenant-1",
			Capabilities: capabilities,
		})
		c.Next()
	}
}

func performRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireCapability_Allowed(t *testing.T) {
	router := gin.New()
	router.Use(setClaims("purchases:receive"))
	router.POST("/receive", RequireCapability("purchases:receive"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := performRequest(router, http.MethodPost, "/receive")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireCapability_Denied(t *testing.T) {
	router := gin.New()
	router.Use(setClaims("purchases:read"))
	router.POST("/receive", RequireCapability("purchases:receive"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := performRequest(router, http.MethodPost, "/receive")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_FORBIDDEN")
}

func TestRequireCapability_NoClaims(t *testing.T) {
	router := gin.New()
	router.GET("/entries", RequireCapability("ledger:read"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := performRequest(router, http.MethodGet, "/entries")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyCapability(t *testing.T) {
	router := gin.New()
	router.Use(setClaims("ledger:read"))
	router.GET("/summary", RequireAnyCapability("ledger:write", "ledger:read"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := performRequest(router, http.MethodGet, "/summary")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAllCapabilities(t *testing.T) {
	tests := []struct {
		name     string
		held     []string
		expected int
	}{
		{"has all", []string{"purchases:receive", "ledger:write"}, http.StatusOK},
		{"missing one", []string{"purchases:receive"}, http.StatusForbidden},
		{"has none", []string{}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(setClaims(tt.held...))
			router.POST("/receive", RequireAllCapabilities("purchases:receive", "ledger:write"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			rec := performRequest(router, http.MethodPost, "/receive")

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestRequireResource_MethodToAction(t *testing.T) {
	router := gin.New()
	router.Use(setClaims("purchases:read", "purchases:create"))

	group := router.Group("/purchases", RequireResource("purchases"))
	group.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.POST("", func(c *gin.Context) { c.Status(http.StatusCreated) })
	group.DELETE("/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusOK, performRequest(router, http.MethodGet, "/purchases").Code)
	assert.Equal(t, http.StatusCreated, performRequest(router, http.MethodPost, "/purchases").Code)
	// No purchases:delete capability
	assert.Equal(t, http.StatusForbidden, performRequest(router, http.MethodDelete, "/purchases/abc").Code)
}

func TestHasCapabilityHelpers(t *testing.T) {
	router := gin.New()
	router.Use(setClaims("ledger:read"))
	router.GET("/check", func(c *gin.Context) {
		assert.True(t, HasCapability(c, "ledger:read"))
		assert.False(t, HasCapability(c, "ledger:write"))
		assert.True(t, HasAnyCapability(c, "ledger:write", "ledger:read"))
		c.Status(http.StatusOK)
	})

	rec := performRequest(router, http.MethodGet, "/check")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMustHaveCapability_Aborts(t *testing.T) {
	router := gin.New()
	router.Use(setClaims("ledger:read"))
	router.POST("/journal", func(c *gin.Context) {
		if !MustHaveCapability(c, "ledger:write") {
			return
		}
		c.Status(http.StatusCreated)
	})

	rec := performRequest(router, http.MethodPost, "/journal")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
