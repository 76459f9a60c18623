package utils

import (
	"context"

	"github.com/google/uuid"
)

type rqIDKey struct{}

func GetRequestIDFromCtx(ctx context.Context) string {
	rqID, ok := ctx.Value(rqIDKey{}).(string)
	if !ok {
		return ""
	}
	return rqID
}

// WithRequestID кладет rqID в контекст, пустой заменяется новым uuid
func WithRequestID(ctx context.Context, rqID string) context.Context {
	if rqID == "" {
		rqID = uuid.NewString()
	}
	return context.WithValue(ctx, rqIDKey{}, rqID)
}

// NewCtxWithRqID - контекст для фоновых задач, где нет входящего запроса
func NewCtxWithRqID(ctx context.Context) context.Context {
	return WithRequestID(ctx, "")
}
