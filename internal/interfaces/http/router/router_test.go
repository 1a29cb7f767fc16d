package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func TestRouterDefaults(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterMountsUnderAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("procurement", "/purchases").
		GET("", ok).
		POST("/:id/receive", ok)
	r.Register(group).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/purchases").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/api/v1/purchases/p1/receive").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/purchases").Code)
}

func TestRouterUseAppliesToAllRoutes(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	var calls int
	r.Use(func(c *gin.Context) {
		calls++
		c.Next()
	})
	r.Register(NewDomainGroup("ledger", "/ledger").GET("/entries", ok))
	r.Register(NewDomainGroup("ingestion", "/invoices").GET("", ok))
	r.Setup()

	serve(engine, http.MethodGet, "/api/v1/ledger/entries")
	serve(engine, http.MethodGet, "/api/v1/invoices")
	assert.Equal(t, 2, calls)
}

func TestRouterUseCanAbort(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Use(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusUnauthorized)
	})
	r.Register(NewDomainGroup("ledger", "/ledger").GET("/entries", ok))
	r.Setup()

	assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/ledger/entries").Code)
}

func TestDomainGroupVerbs(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("crud", "/items").
		GET("", ok).
		POST("", ok).
		PUT("/:id", ok).
		PATCH("/:id", ok).
		DELETE("/:id", ok)
	r.Register(group).Setup()

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/items"},
		{http.MethodPost, "/api/v1/items"},
		{http.MethodPut, "/api/v1/items/1"},
		{http.MethodPatch, "/api/v1/items/1"},
		{http.MethodDelete, "/api/v1/items/1"},
	} {
		assert.Equal(t, http.StatusOK, serve(engine, tc.method, tc.path).Code, "%s %s", tc.method, tc.path)
	}
}

func TestDomainGroupMiddlewareScopedToGroup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	guarded := NewDomainGroup("payments", "/payments").
		Use(func(c *gin.Context) {
			c.AbortWithStatus(http.StatusForbidden)
		}).
		GET("", ok)
	open := NewDomainGroup("summary", "/summary").GET("", ok)
	r.Register(guarded).Register(open).Setup()

	assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/payments").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/summary").Code)
}

func TestDomainGroupNesting(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	parent := NewDomainGroup("ledger", "/ledger")
	parent.GET("/entries", ok)
	sub := parent.Group("journal", "/journal")
	sub.POST("", ok)
	r.Register(parent).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/ledger/entries").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/api/v1/ledger/journal").Code)

	require.Equal(t, "journal", sub.Name())
	assert.Equal(t, "/journal", sub.Prefix())
}
