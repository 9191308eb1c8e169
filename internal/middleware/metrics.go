package middleware

import (
	"time"

	"clubhub-go/internal/monitoring"

	"github.com/gin-gonic/gin"
)

// ServerLabel tags every request with the server name used in metric labels.
func ServerLabel(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("server_label", name)
		c.Next()
	}
}

// Metrics is an HTTP middleware to track per-route counters and latency histogram
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		monitoring.HTTPInFlight.Inc()
		c.Next()
		monitoring.HTTPInFlight.Dec()

		durSec := time.Since(start).Seconds()
		server, _ := c.Get("server_label")
		serverStr, _ := server.(string)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		sc := monitoring.StatusClass(c.Writer.Status())

		monitoring.HTTPRequestsTotal.WithLabelValues(serverStr, c.Request.Method, path, sc).Inc()
		monitoring.HTTPRequestDuration.WithLabelValues(serverStr, c.Request.Method, path, sc).Observe(durSec)
	}
}
