package logging

import (
	"context"

	"go.uber.org/zap"
)

// loggerKey is unexported so only this package can attach or read the
// request-scoped logger.
type loggerKey struct{}

// ContextWithLogger attaches logger to ctx. Handlers use it to carry the
// request id and trace fields down into the services. A nil logger leaves
// the context as is.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached by ContextWithLogger. Code paths
// without one (workers, tests) get the process-wide zap.L().
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return zap.L()
	}
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.L()
}
