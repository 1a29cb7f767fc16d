package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	t.Run("allows up to the limit", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("10.0.0.1"), "request %d", i+1)
		}
		assert.False(t, limiter.Allow("10.0.0.1"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)

		assert.True(t, limiter.Allow("clinic-a"))
		assert.False(t, limiter.Allow("clinic-a"))
		assert.True(t, limiter.Allow("clinic-b"))
	})

	t.Run("bucket refills after the window", func(t *testing.T) {
		limiter := NewRateLimiter(1, 30*time.Millisecond)

		assert.True(t, limiter.Allow("10.0.0.2"))
		assert.False(t, limiter.Allow("10.0.0.2"))

		time.Sleep(40 * time.Millisecond)
		assert.True(t, limiter.Allow("10.0.0.2"))
	})

	t.Run("concurrent callers never exceed the limit", func(t *testing.T) {
		limiter := NewRateLimiter(50, time.Minute)

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0
		for i := 0; i < 80; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, allowed)
	})
}

func TestRateLimiterRemaining(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute)

	assert.Equal(t, 5, limiter.Remaining("fresh"))

	limiter.Allow("fresh")
	limiter.Allow("fresh")
	assert.Equal(t, 3, limiter.Remaining("fresh"))
}

func rateLimitedRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/invoices", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("sets limit headers and blocks at the cap", func(t *testing.T) {
		router := rateLimitedRouter(RateLimit(NewRateLimiter(2, time.Minute)))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("tenant header scopes the key", func(t *testing.T) {
		router := rateLimitedRouter(RateLimit(NewRateLimiter(1, time.Minute)))

		request := func(tenant string) int {
			req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
			req.Header.Set("X-Tenant-ID", tenant)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w.Code
		}

		assert.Equal(t, http.StatusOK, request("clinic-a"))
		assert.Equal(t, http.StatusTooManyRequests, request("clinic-a"))
		assert.Equal(t, http.StatusOK, request("clinic-b"))
	})
}

func TestRateLimitByKey(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	router := rateLimitedRouter(RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.GetHeader("X-API-Key")
	}))

	request := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
		req.Header.Set("X-API-Key", key)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, request("key-1"))
	assert.Equal(t, http.StatusTooManyRequests, request("key-1"))
	assert.Equal(t, http.StatusOK, request("key-2"))
}
