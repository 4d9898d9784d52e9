package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/config"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	"github.com/moda-commerce/moda-backend/pkg/logger"
	"github.com/moda-commerce/moda-backend/pkg/metrics"
	"github.com/moda-commerce/moda-backend/pkg/outbox"
	"github.com/moda-commerce/moda-backend/pkg/outbox/payloads"
	"github.com/moda-commerce/moda-backend/pkg/outbox/registry"
)

func TestServiceSettlesEachRow(t *testing.T) {
	transient := errors.New("broker timeout")
	cases := []struct {
		name        string
		attempts    int
		maxAttempts int
		registry    *fakeRegistry
		publishErr  error
		wantSent    int
		wantFailed  int
		wantReason  enums.OutboxDLQErrorReason
		wantOutcome string
	}{
		{name: "published", registry: &fakeRegistry{resolved: tradesResolved()}, wantSent: 1, wantOutcome: metrics.OutboxPublished},
		{name: "transient failure retried", registry: &fakeRegistry{resolved: tradesResolved()}, publishErr: transient, wantFailed: 1, wantOutcome: metrics.OutboxRetried},
		{
			name:        "undecodable row",
			registry:    &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))},
			wantReason:  enums.OutboxDLQReasonUndecodable,
			wantOutcome: metrics.OutboxDeadLettered,
		},
		{
			name:        "broker rejects message",
			registry:    &fakeRegistry{resolved: tradesResolved()},
			publishErr:  registry.NewNonRetryableError(errors.New("permission denied")),
			wantReason:  enums.OutboxDLQReasonNonRetryable,
			wantOutcome: metrics.OutboxDeadLettered,
		},
		{
			name:        "last attempt",
			attempts:    1,
			maxAttempts: 2,
			registry:    &fakeRegistry{resolved: tradesResolved()},
			publishErr:  transient,
			wantReason:  enums.OutboxDLQReasonMaxAttempts,
			wantOutcome: metrics.OutboxDeadLettered,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := tradeEvent(t, tc.attempts)
			repo := &fakeRepo{events: []models.OutboxEvent{event}}
			pub := &fakeBroker{errs: []error{tc.publishErr}}
			dlq := &fakeDLQRepo{}
			reg := prometheus.NewRegistry()
			svc := newTestService(t, serviceDeps{repo: repo, broker: pub, registry: tc.registry, dlq: dlq, metrics: reg, maxAttempts: tc.maxAttempts})

			busy, err := svc.processBatch(context.Background())
			require.NoError(t, err)
			require.True(t, busy)
			require.Len(t, pub.sent, tc.wantSent)
			require.Len(t, repo.failed, tc.wantFailed)

			if tc.wantReason == "" {
				require.Empty(t, dlq.entries)
			} else {
				require.Len(t, dlq.entries, 1)
				entry := dlq.entries[0]
				require.Equal(t, tc.wantReason, entry.ErrorReason)
				require.Equal(t, event.ID, entry.EventID)
				require.Equal(t, []byte(event.Payload), []byte(entry.Payload))
				require.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
			}

			families, err := reg.Gather()
			require.NoError(t, err)
			require.Equal(t, tc.wantOutcome, outcomeLabel(t, families))
		})
	}
}

func TestServiceBatchKeepsGoingPastAFailedRow(t *testing.T) {
	first, second := tradeEvent(t, 0), tradeEvent(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakeBroker{errs: []error{errors.New("transient"), nil}}
	svc := newTestService(t, serviceDeps{repo: repo, broker: pub})

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{first.ID}, repo.failed)
	require.Equal(t, []uuid.UUID{second.ID}, repo.published)
}

func TestServicePublishesWithRoutingAttributes(t *testing.T) {
	event := tradeEvent(t, 0)
	pub := &fakeBroker{}
	svc := newTestService(t, serviceDeps{repo: &fakeRepo{events: []models.OutboxEvent{event}}, broker: pub})

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	msg := pub.sent[0]
	require.Equal(t, "trades-topic", msg.Topic)
	require.Equal(t, event.AggregateID.String(), msg.Key)
	for _, attr := range []string{"event_id", "event_type", "aggregate_type", "aggregate_id", "created_at"} {
		require.NotEmpty(t, msg.Attributes[attr], attr)
	}
	require.True(t, bytes.Equal(msg.Data, event.Payload), "envelope is the message body")
}

func TestServiceSkipsAlreadyPublishedRows(t *testing.T) {
	done := tradeEvent(t, 0)
	at := time.Now().UTC()
	done.PublishedAt = &at
	repo := &fakeRepo{events: []models.OutboxEvent{done}}
	pub := &fakeBroker{}
	svc := newTestService(t, serviceDeps{repo: repo, broker: pub})

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Empty(t, pub.sent)
	require.Empty(t, repo.published)
}

func TestServiceEmptyBatchIsIdle(t *testing.T) {
	svc := newTestService(t, serviceDeps{})
	busy, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.False(t, busy)
}

func TestErrorBackoffGrowsAndCaps(t *testing.T) {
	svc := newTestService(t, serviceDeps{})
	b := svc.errorBackoff()

	first, _ := b.Next()
	require.InDelta(t, float64(svc.pollInterval), float64(first), float64(pollJitter))
	var last time.Duration
	for i := 0; i < 64; i++ {
		last, _ = b.Next()
	}
	require.InDelta(t, float64(maxErrorBackoff), float64(last), float64(pollJitter))
}

func TestRunStopsWhenBrokerUnreachable(t *testing.T) {
	svc := newTestService(t, serviceDeps{broker: &fakeBroker{pingErr: errors.New("no route")}})
	err := svc.Run(context.Background())
	require.ErrorContains(t, err, "ping failed")
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config:        &config.Config{},
		Logger:        testLogger(),
		DB:            &fakeDB{},
		Repository:    &fakeRepo{},
		Registry:      &fakeRegistry{},
		DLQRepository: &fakeDLQRepo{},
	})
	require.ErrorContains(t, err, "broker is required")
}

type serviceDeps struct {
	repo        *fakeRepo
	broker      *fakeBroker
	registry    *fakeRegistry
	dlq         *fakeDLQRepo
	metrics     prometheus.Registerer
	maxAttempts int
}

func newTestService(t *testing.T, d serviceDeps) *Service {
	t.Helper()
	if d.repo == nil {
		d.repo = &fakeRepo{}
	}
	if d.broker == nil {
		d.broker = &fakeBroker{}
	}
	if d.registry == nil {
		d.registry = &fakeRegistry{resolved: tradesResolved()}
	}
	if d.dlq == nil {
		d.dlq = &fakeDLQRepo{}
	}
	if d.maxAttempts == 0 {
		d.maxAttempts = 5
	}
	svc, err := NewService(ServiceParams{
		Config:        &config.Config{Outbox: config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: d.maxAttempts}},
		Logger:        testLogger(),
		DB:            &fakeDB{},
		Broker:        d.broker,
		BrokerName:    config.BrokerKafka,
		Repository:    d.repo,
		Registry:      d.registry,
		DLQRepository: d.dlq,
		Metrics:       metrics.NewOutboxMetrics(d.metrics, config.BrokerKafka),
	})
	require.NoError(t, err)
	return svc
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard})
}

// outcomeLabel returns the outcome of the single moda_outbox_events_total series.
func outcomeLabel(t *testing.T, families []*dto.MetricFamily) string {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != "moda_outbox_events_total" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			if lp.GetName() == "outcome" {
				return lp.GetValue()
			}
		}
	}
	t.Fatalf("moda_outbox_events_total not recorded")
	return ""
}

func tradeEvent(tb testing.TB, attempts int) models.OutboxEvent {
	tb.Helper()
	id := uuid.New()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.EnvelopeVersion,
		EventID:    id.String(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"tradeId":"x"}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventTradeStatusChanged,
		AggregateType: enums.AggregateTrade,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

func tradesResolved() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     enums.EventTradeStatusChanged,
			AggregateType: enums.AggregateTrade,
			Topic:         "trades-topic",
		},
		Payload: &payloads.TradeStatusChangedEvent{},
	}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakeBroker struct {
	errs    []error
	sent    []outbox.Message
	pingErr error
}

func (f *fakeBroker) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakeBroker) Publish(_ context.Context, msg outbox.Message) error {
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	if err == nil {
		f.sent = append(f.sent, msg)
	}
	return err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
