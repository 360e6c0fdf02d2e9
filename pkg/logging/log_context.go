package logging

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

var logKey contextKey = "log"

func GetLogger(ctx context.Context) *zap.Logger {
	l, ok := ctx.Value(logKey).(*zap.Logger)
	if !ok || l == nil {
		return zap.L()
	}
	return l
}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, logKey, logger)
}

// Named returns the context's logger with the name appended, and a context carrying it.
func Named(ctx context.Context, name string) (context.Context, *zap.Logger) {
	log := GetLogger(ctx).Named(name)
	return WithLogger(ctx, log), log
}
