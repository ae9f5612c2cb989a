package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithUser attaches the acting user's id to the context logger so every
// log line in a call chain carries it.
func WithUser(ctx context.Context, userID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("user_id", userID))
}
