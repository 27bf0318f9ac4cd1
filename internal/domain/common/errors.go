package common

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("requested item not found")
	ErrUnauthenticated   = errors.New("authentication required or invalid credentials")
	ErrBadRequest        = errors.New("bad request")
	ErrUnsupportedEntity = errors.New("unsupported import entity")
	ErrInvalidMapping    = errors.New("invalid column mapping")
	ErrEmptyUpload       = errors.New("uploaded file is empty")
	ErrUploadTooLarge    = errors.New("uploaded file is too large")
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	requestIDKey contextKey = "request_id"
)

// WithUserID stores the authenticated user's id on ctx.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the authenticated user's id, or
// ErrUnauthenticated when the request carried none.
func UserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrUnauthenticated
	}
	return id, nil
}

// WithRequestID stores the request id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
