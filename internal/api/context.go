package api

import (
	"context"

	"github.com/org/endura/pkg/models"
)

type contextKey string

const (
	ctxKeyAccount   contextKey = "account"
	ctxKeyRequestID contextKey = "request_id"
)

func withAccount(ctx context.Context, a *models.Account) context.Context {
	return context.WithValue(ctx, ctxKeyAccount, a)
}

func accountFromCtx(ctx context.Context) *models.Account {
	a, _ := ctx.Value(ctxKeyAccount).(*models.Account)
	return a
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func requestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}
