package middleware

import (
	"time"

	"clubhub-go/internal/logging"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs HTTP requests
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		// Set by the auth middleware when a bearer token was accepted
		userVal, _ := c.Get("user_id")
		roleVal, _ := c.Get("role")
		extras := log.Fields{
			"status":     status,
			"latency_ms": logging.DurationMS(time.Since(start)),
			"user_agent": c.Request.UserAgent(),
			"kind":       logging.ErrorKind(status, false),
			"user_id":    userVal,
			"role":       roleVal,
		}
		entry := logging.WithReq(c, extras)
		if status >= 500 {
			entry.Warn("http_request")
			return
		}
		entry.Info("http_request")
	}
}
