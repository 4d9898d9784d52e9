package webhooks

import (
	"context"

	"github.com/moda-commerce/moda-backend/internal/checkout"
	"github.com/moda-commerce/moda-backend/internal/payments"
)

type callbackService interface {
	HandleCallback(ctx context.Context, cb payments.Callback) (*checkout.CallbackResult, error)
}

type callbackGuard interface {
	CheckAndMark(ctx context.Context, cb payments.Callback) (bool, error)
	Release(ctx context.Context, cb payments.Callback) error
}
