package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lendery/backend/pkg/logctx"
)

// RequestLoggerMiddleware derives a request-scoped logger enriched with the
// trace id and attaches it to gin.Context and the request context. Everything
// downstream (handlers, services, the gorm adapter) picks it up via logctx.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lg := base
		if tid := logctx.TraceID(c.Request.Context()); tid != "" {
			lg = base.With("trace_id", tid)
		}

		c.Set(logctx.GinLoggerKey, lg)
		c.Request = c.Request.WithContext(logctx.WithLogger(c.Request.Context(), lg))

		c.Next()
	}
}
