package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Recovery turns a handler panic into a JSON 500.
func Recovery() gin.HandlerFunc {
	return RecoveryWithWriter(nil)
}

// RecoveryWithWriter is Recovery with a hook called after logging.
func RecoveryWithWriter(writer gin.RecoveryFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				rid, _ := c.Get("request_id")
				log.WithFields(log.Fields{
					"error":      err,
					"stack":      string(debug.Stack()),
					"request_id": rid,
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"client_ip":  c.ClientIP(),
					"timestamp":  time.Now().Format(time.RFC3339),
				}).Error("Panic recovered")

				if writer != nil {
					writer(c, err)
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"message": "Internal server error",
					"code":    "panic_recovered",
				})
			}
		}()

		c.Next()
	}
}

// SafeGo runs fn on a new goroutine and logs instead of crashing on panic.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(log.Fields{
					"goroutine": name,
					"error":     err,
					"stack":     string(debug.Stack()),
				}).Error("Goroutine panic recovered")
			}
		}()
		fn()
	}()
}
