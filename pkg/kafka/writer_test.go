package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/moda-commerce/moda-backend/pkg/config"
	"github.com/moda-commerce/moda-backend/pkg/outbox"
)

type recordingWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func TestPublishKeysByAggregate(t *testing.T) {
	rec := &recordingWriter{}
	w := &Writer{w: rec}

	err := w.Publish(context.Background(), outbox.Message{
		Topic: "moda-trades",
		Key:   "trade-1",
		Data:  []byte(`{"eventId":"e1"}`),
		Attributes: map[string]string{
			"event_type": "trade_status_changed",
			"event_id":   "e1",
		},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(rec.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(rec.msgs))
	}
	msg := rec.msgs[0]
	if msg.Topic != "moda-trades" || string(msg.Key) != "trade-1" {
		t.Fatalf("unexpected routing topic=%s key=%s", msg.Topic, msg.Key)
	}
	if len(msg.Headers) != 2 || msg.Headers[0].Key != "event_id" {
		t.Fatalf("expected sorted headers, got %+v", msg.Headers)
	}
}

func TestPublishRequiresTopic(t *testing.T) {
	w := &Writer{w: &recordingWriter{}}
	if err := w.Publish(context.Background(), outbox.Message{Key: "k"}); err == nil {
		t.Fatalf("expected error for empty topic")
	}
}

func TestNewWriterRequiresBrokers(t *testing.T) {
	if _, err := NewWriter(context.Background(), config.KafkaConfig{Brokers: []string{" "}}, nil); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
