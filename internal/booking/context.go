package booking

import (
	"context"

	"github.com/avstrong/hotelbooking/internal/logger"
)

type contextKey string

const (
	idempotencyKey contextKey = "idempotencyKey"
	requestIDKey   contextKey = "requestID"
)

func NewContextWithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey, key)
}

func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKey).(string)

	return key, ok && key != ""
}

func NewContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)

	return id, ok && id != ""
}

// loggerFor tags l with the request id carried by ctx, if any.
func loggerFor(ctx context.Context, l *logger.Logger, fields map[string]any) *logger.Logger {
	if id, ok := RequestIDFromContext(ctx); ok {
		fields["request_id"] = id
	}

	return l.WithFields(fields)
}
