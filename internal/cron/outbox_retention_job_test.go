package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/testdb"
	"github.com/moda-commerce/moda-backend/pkg/db"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	"github.com/moda-commerce/moda-backend/pkg/logger"
	"github.com/moda-commerce/moda-backend/pkg/outbox"
)

type fakePurger struct {
	cutoff      time.Time
	minAttempts int
	calls       int
	err         error
}

func (f *fakePurger) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttempts int) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	f.minAttempts = minAttempts
	return 3, f.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func newRetentionJob(t *testing.T, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	if params.Logger == nil {
		params.Logger = logger.New(logger.Options{ServiceName: "test"})
	}
	jobIface, err := NewOutboxRetentionJob(params)
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	return jobIface.(*outboxRetentionJob)
}

func TestOutboxRetentionJobDefaults(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	purger := &fakePurger{}
	job := newRetentionJob(t, OutboxRetentionJobParams{DB: passthroughTx{}, Outbox: purger})
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.AddDate(0, 0, -defaultOutboxRetentionDays); !purger.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, purger.cutoff)
	}
	if purger.minAttempts != defaultOutboxMinAttempts || purger.calls != 1 {
		t.Fatalf("unexpected call: attempts=%d calls=%d", purger.minAttempts, purger.calls)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	purger := &fakePurger{err: errors.New("boom")}
	job := newRetentionJob(t, OutboxRetentionJobParams{DB: passthroughTx{}, Outbox: purger, RetentionDays: 7})

	if err := job.Run(context.Background()); !errors.Is(err, purger.err) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestOutboxRetentionJobDeletesOldPublishedRows(t *testing.T) {
	conn := testdb.Open(t)
	now := time.Now().UTC()
	old := now.AddDate(0, 0, -40)
	recent := now.AddDate(0, 0, -1)

	rows := []models.OutboxEvent{
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregatePayment, PublishedAt: &old, CreatedAt: old},
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregatePayment, PublishedAt: &recent, CreatedAt: recent},
		{EventType: enums.EventTradeStatusChanged, AggregateType: enums.AggregateTrade, CreatedAt: old},
	}
	for i := range rows {
		rows[i].Payload = []byte(`{}`)
		if err := conn.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed outbox: %v", err)
		}
	}

	job := newRetentionJob(t, OutboxRetentionJobParams{
		DB:     db.FromConn(conn),
		Outbox: outbox.NewRepository(conn),
	})
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var remaining int64
	if err := conn.Model(&models.OutboxEvent{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("expected 2 rows left, got %d", remaining)
	}
}
