// Package ctxlog provides a context key for passing a zap.SugaredLogger
// through context.Context.
package ctxlog

import (
	"context"

	"go.uber.org/zap"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

// loggerKey is the key for the logger in a context.Context.
var loggerKey = key{}

var nop = zap.NewNop().Sugar()

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from a context. Without one it returns a
// no-op logger, so packages can log unconditionally.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if logger, ok := ctx.Value(loggerKey).(*zap.SugaredLogger); ok && logger != nil {
		return logger
	}
	return nop
}
