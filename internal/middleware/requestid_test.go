package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Generate request ID when not provided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			rid, exists := c.Get("request_id")
			if !exists || rid == "" {
				t.Error("Expected request_id to be set in context")
			}
			c.String(200, "OK")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		responseID := w.Header().Get(RequestIDHeader)
		if _, err := uuid.Parse(responseID); err != nil {
			t.Errorf("Expected a uuid request ID, got %q", responseID)
		}
	})

	t.Run("Use provided request ID", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			rid, _ := c.Get("request_id")
			if rid != "custom-request-id" {
				t.Errorf("Expected 'custom-request-id', got %v", rid)
			}
			c.String(200, "OK")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "custom-request-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != "custom-request-id" {
			t.Errorf("Expected 'custom-request-id', got %q", got)
		}
	})

	t.Run("Generate unique IDs for different requests", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) { c.String(200, "OK") })

		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, httptest.NewRequest("GET", "/test", nil))
		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, httptest.NewRequest("GET", "/test", nil))

		if w1.Header().Get(RequestIDHeader) == w2.Header().Get(RequestIDHeader) {
			t.Error("Expected different request IDs")
		}
	})
}
