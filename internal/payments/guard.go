package payments

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type callbackStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	GatewayCallbackKey(gateway, orderRef, transactionNo string) string
}

// CallbackGuard drops gateway callbacks that were already accepted for the
// same (gateway, orderRef, transactionNo).
type CallbackGuard struct {
	store callbackStore
	ttl   time.Duration
}

func NewCallbackGuard(store callbackStore, ttl time.Duration) (*CallbackGuard, error) {
	if store == nil {
		return nil, errors.New("callback store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &CallbackGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark reports true when the callback was seen before.
func (g *CallbackGuard) CheckAndMark(ctx context.Context, cb Callback) (bool, error) {
	if cb.OrderRef == "" {
		return false, errors.New("order ref is required")
	}
	set, err := g.store.SetNX(ctx, g.key(cb), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set callback key: %w", err)
	}
	return !set, nil
}

// Release forgets the callback so the gateway's retry is processed again.
func (g *CallbackGuard) Release(ctx context.Context, cb Callback) error {
	if cb.OrderRef == "" {
		return errors.New("order ref is required")
	}
	return g.store.Del(ctx, g.key(cb))
}

func (g *CallbackGuard) key(cb Callback) string {
	return g.store.GatewayCallbackKey(string(cb.Gateway), cb.OrderRef, cb.TransactionNo)
}
