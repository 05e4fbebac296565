package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lendery/backend/pkg/logctx"
)

// AccessLogMiddleware writes one line per completed request through the
// request-scoped logger. Admin requests additionally carry the actor id, so
// the access log lines up with the audit trail.
func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		lg := logctx.FromGin(c, nil)
		if lg == nil {
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if actor := ActorID(c); actor != "" {
			fields = append(fields, "actor_id", actor)
		}
		lg.Infow("http_access", fields...)
	}
}
