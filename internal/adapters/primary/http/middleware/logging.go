package middleware

import (
	"strconv"
	"time"

	"nlu-service/internal/metrics"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Logging emits one log line per request and records request metrics under
// the matched route template, so tenant ids and utterances never become
// label values.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		metrics.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()

		entry := log.WithFields(log.Fields{
			"status":     status,
			"method":     c.Request.Method,
			"route":      route,
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(ctxRequestID),
		})
		if status >= 500 {
			entry.Warn("request completed")
			return
		}
		entry.Info("request completed")
	}
}
