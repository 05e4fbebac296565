// Package logctx carries the request-scoped logger and its identifying
// fields (trace id, admin actor id) through context. Middleware writes,
// services and the gorm adapter read.
package logctx

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	traceIDKey
	actorIDKey
)

// Gin context keys mirroring the request-context values. The middleware sets
// both so handlers can use whichever is at hand.
const (
	GinLoggerKey  = "logger"
	GinTraceIDKey = "traceID"
)

// WithLogger stores the request-scoped logger.
func WithLogger(ctx context.Context, lg *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, lg)
}

// WithTraceID stores the request trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithActorID stores the authenticated admin's id so audit-relevant log lines
// carry it without every call site threading it through.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// TraceID returns the stored trace id, empty if none.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(traceIDKey).(string)
	return s
}

// ActorID returns the stored admin actor id, empty if none.
func ActorID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(actorIDKey).(string)
	return s
}

// FromGin returns the request-scoped logger from gin.Context if present,
// otherwise falls through to FromCtx.
func FromGin(c *gin.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return base
	}
	if l, ok := c.Get(GinLoggerKey); ok {
		if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
			return lg
		}
	}
	return FromCtx(c.Request.Context(), base)
}

// FromCtx returns the stored logger if set, otherwise enriches base with
// whatever identifying fields the context carries.
func FromCtx(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if ctx == nil {
		return base
	}
	if lg, ok := ctx.Value(loggerKey).(*zap.SugaredLogger); ok && lg != nil {
		return lg
	}
	if base == nil {
		return nil
	}
	var fields []interface{}
	if tid := TraceID(ctx); tid != "" {
		fields = append(fields, "trace_id", tid)
	}
	if aid := ActorID(ctx); aid != "" {
		fields = append(fields, "actor_id", aid)
	}
	if len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}
