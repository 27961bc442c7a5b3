package logger

import (
	"context"
	"log/slog"
)

type ctxKey string

const loggerKey ctxKey = "slog"

// With stores a child logger carrying the given fields in the context.
// Used by the request-id middleware so every log line downstream tags
// the request.
func With(ctx context.Context, fields ...any) context.Context {
	l := From(ctx).With(fields...)
	return context.WithValue(ctx, loggerKey, l)
}

// From returns the context logger, falling back to the process logger.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}
