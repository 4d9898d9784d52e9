package pubsub

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/moda-commerce/moda-backend/pkg/config"
	"github.com/moda-commerce/moda-backend/pkg/outbox"
	"github.com/moda-commerce/moda-backend/pkg/outbox/registry"
)

func TestResolveTopicsDeduplicatesAndQualifies(t *testing.T) {
	got := resolveTopics("moda-prod", config.PubSubConfig{
		OrdersTopic:   " orders ",
		TradesTopic:   "projects/shared/topics/trades",
		ListingsTopic: "orders",
	})
	want := map[string]string{
		"orders":                        "projects/moda-prod/topics/orders",
		"projects/shared/topics/trades": "projects/shared/topics/trades",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(resolveTopics("moda-prod", config.PubSubConfig{})) != 0 {
		t.Fatalf("blank config should resolve no topics")
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "o"}, nil); !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil); !errors.Is(err, errNoTopics) {
		t.Fatalf("expected no topics error, got %v", err)
	}
}

func TestPublishUnknownTopicIsNonRetryable(t *testing.T) {
	c := &Client{topics: map[string]string{"orders": "projects/p/topics/orders"}}
	err := c.Publish(context.Background(), outbox.Message{Topic: "refunds", Key: "k"})
	var nonRetry registry.NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestClassifySplitsPermanentFailures(t *testing.T) {
	var nonRetry registry.NonRetryableError
	if err := classify(status.Error(codes.PermissionDenied, "denied")); !errors.As(err, &nonRetry) {
		t.Fatalf("permission denied should not be retried, got %v", err)
	}
	if err := classify(status.Error(codes.Unavailable, "try later")); errors.As(err, &nonRetry) {
		t.Fatalf("unavailable should stay retryable")
	}
}

func TestNilClientPingFails(t *testing.T) {
	var c *Client
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected error from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("closing nil client: %v", err)
	}
}
