package reqid

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Header is the HTTP header carrying the request id.
const Header = "X-Request-ID"

// key is an unexported type to avoid collisions in context values.
type key struct{}

// New returns a fresh request id.
func New() string { return uuid.NewString() }

// With returns a new context with the provided request ID attached.
func With(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key{}, id)
}

// From extracts the request ID from the context, if present.
func From(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if s, ok := ctx.Value(key{}).(string); ok && s != "" {
		return s, true
	}
	return "", false
}

// Logger returns l tagged with the request id carried by ctx, if any.
func Logger(ctx context.Context, l *slog.Logger) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	if id, ok := From(ctx); ok {
		return l.With("request_id", id)
	}
	return l
}
