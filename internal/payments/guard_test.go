package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

type memoryStore struct {
	data map[string]time.Duration
	err  error
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = ttl
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) GatewayCallbackKey(gateway, orderRef, transactionNo string) string {
	return gateway + ":" + orderRef + ":" + transactionNo
}

func TestCallbackGuardDropsDuplicates(t *testing.T) {
	store := &memoryStore{data: map[string]time.Duration{}}
	guard, err := NewCallbackGuard(store, time.Hour)
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	cb := Callback{Gateway: enums.GatewayVNPay, OrderRef: "ORD-1", TransactionNo: "14000001"}

	seen, err := guard.CheckAndMark(context.Background(), cb)
	if err != nil || seen {
		t.Fatalf("first delivery should pass, seen=%v err=%v", seen, err)
	}
	seen, err = guard.CheckAndMark(context.Background(), cb)
	if err != nil || !seen {
		t.Fatalf("second delivery should be flagged, seen=%v err=%v", seen, err)
	}
	if ttl := store.data["VNPAY:ORD-1:14000001"]; ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %v", ttl)
	}

	other := cb
	other.TransactionNo = "14000002"
	if seen, _ := guard.CheckAndMark(context.Background(), other); seen {
		t.Fatal("a different transaction number is a different callback")
	}
}

func TestCallbackGuardRelease(t *testing.T) {
	store := &memoryStore{data: map[string]time.Duration{}}
	guard, _ := NewCallbackGuard(store, time.Minute)
	cb := Callback{Gateway: enums.GatewayMoMo, OrderRef: "ORD-2", TransactionNo: "99"}

	if _, err := guard.CheckAndMark(context.Background(), cb); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := guard.Release(context.Background(), cb); err != nil {
		t.Fatalf("release: %v", err)
	}
	if seen, _ := guard.CheckAndMark(context.Background(), cb); seen {
		t.Fatal("released callback should be processed again")
	}
}

func TestCallbackGuardErrors(t *testing.T) {
	if _, err := NewCallbackGuard(nil, time.Minute); err == nil {
		t.Fatal("expected nil store to fail")
	}
	store := &memoryStore{data: map[string]time.Duration{}, err: errors.New("redis down")}
	guard, _ := NewCallbackGuard(store, time.Minute)
	if _, err := guard.CheckAndMark(context.Background(), Callback{OrderRef: "x"}); err == nil {
		t.Fatal("expected store error")
	}
	if _, err := guard.CheckAndMark(context.Background(), Callback{}); err == nil {
		t.Fatal("expected missing order ref to fail")
	}
}

func TestRegistryUnknownGateway(t *testing.T) {
	_, err := NewRegistry().Get(enums.GatewayVNPay)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
