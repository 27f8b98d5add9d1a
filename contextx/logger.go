package contextx

import (
	"context"

	"go.uber.org/zap"
)

// WithLogger returns a derived context carrying a request-scoped logger,
// typically one already annotated with the request ID.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Logger returns the logger stored in ctx, or fallback when none is present.
// A nil fallback yields a no-op logger.
func Logger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}
