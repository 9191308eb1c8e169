package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Allow requests within limit", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimiter(10, 10))
		router.GET("/test", func(c *gin.Context) { c.String(200, "OK") })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		if w.Code != 200 {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("Block requests exceeding limit", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimiter(0.001, 1))
		router.GET("/test", func(c *gin.Context) { c.String(200, "OK") })

		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, httptest.NewRequest("GET", "/test", nil))
		if w1.Code != 200 {
			t.Errorf("First request: expected status 200, got %d", w1.Code)
		}

		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, httptest.NewRequest("GET", "/test", nil))
		if w2.Code != http.StatusTooManyRequests {
			t.Errorf("Second request: expected status 429, got %d", w2.Code)
		}
	})

	t.Run("Limits are per client", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimiter(0.001, 1))
		router.GET("/test", func(c *gin.Context) { c.String(200, "OK") })

		for _, addr := range []string{"10.0.0.1:1000", "10.0.0.2:1000"} {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = addr
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != 200 {
				t.Errorf("%s: expected status 200, got %d", addr, w.Code)
			}
		}
	})
}

func TestTTLLimiterCache(t *testing.T) {
	t.Run("Get or create limiter", func(t *testing.T) {
		cache := newTTLLimiterCache(time.Minute)

		lim1 := cache.get("key1", func() *rate.Limiter { return rate.NewLimiter(10, 10) })
		lim2 := cache.get("key1", func() *rate.Limiter { return rate.NewLimiter(20, 20) })
		if lim1 != lim2 {
			t.Error("Expected same limiter for same key")
		}
	})

	t.Run("Sweep expired entries", func(t *testing.T) {
		now := time.Unix(1_700_000_000, 0)
		cache := newTTLLimiterCache(time.Minute)
		cache.now = func() time.Time { return now }

		cache.get("old", func() *rate.Limiter { return rate.NewLimiter(1, 1) })
		now = now.Add(5 * time.Minute)
		cache.get("new", func() *rate.Limiter { return rate.NewLimiter(1, 1) })

		if n := cache.len(); n != 1 {
			t.Errorf("Expected 1 limiter after sweep, got %d", n)
		}
	})
}
