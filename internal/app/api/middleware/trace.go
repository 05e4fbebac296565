package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lendery/backend/pkg/logctx"
)

// TraceMiddleware assigns every request a trace id: the client's X-Request-ID
// when present, a fresh UUID otherwise. The id is stored in gin.Context and
// the request context and mirrored back on the response so webhook providers
// can quote it when reporting a failed delivery.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Request-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(logctx.GinTraceIDKey, traceID)
		c.Request = c.Request.WithContext(logctx.WithTraceID(c.Request.Context(), traceID))
		c.Writer.Header().Set("X-Request-ID", traceID)

		c.Next()
	}
}
