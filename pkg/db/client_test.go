package db

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/moda-commerce/moda-backend/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestWithIsolatedTx_RetriesSerializationFailures(t *testing.T) {
	db := newTestDB(t)
	client := FromConn(db)

	attempts := 0
	err := client.WithIsolatedTx(context.Background(), TxOptions{
		Isolation:  sql.LevelSerializable,
		Timeout:    time.Second,
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
	}, func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("allocate: %w", &pgconn.PgError{Code: "40001"})
		}
		return tx.Create(&testModel{Name: "serialized"}).Error
	})
	if err != nil {
		t.Fatalf("WithIsolatedTx failed: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}

	var count int64
	if err := db.Model(&testModel{}).Where("name = ?", "serialized").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one committed row, got %d", count)
	}
}

func TestWithIsolatedTx_GivesUpAfterMaxRetries(t *testing.T) {
	client := FromConn(newTestDB(t))

	attempts := 0
	err := client.WithIsolatedTx(context.Background(), TxOptions{MaxRetries: 2, RetryBase: time.Millisecond}, func(tx *gorm.DB) error {
		attempts++
		return &pgconn.PgError{Code: "40P01"}
	})
	if !IsSerializationFailure(err) {
		t.Fatalf("expected serialization failure to surface, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 1 attempt plus 2 retries, got %d", attempts)
	}
}

func TestWithIsolatedTx_DoesNotRetryDomainErrors(t *testing.T) {
	client := FromConn(newTestDB(t))
	boom := errors.New("insufficient stock")

	attempts := 0
	err := client.WithIsolatedTx(context.Background(), TxOptions{MaxRetries: 5, RetryBase: time.Millisecond}, func(tx *gorm.DB) error {
		attempts++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestErrorClassifiers(t *testing.T) {
	if !IsSerializationFailure(&pq.Error{Code: "40001"}) {
		t.Fatal("expected pq serialization failure to be detected")
	}
	if IsSerializationFailure(errors.New("40001")) {
		t.Fatal("plain errors are not serialization failures")
	}
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}, "") {
		t.Fatal("expected unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503", Message: "duplicate key value"}, "") {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: user_devices.user_id"), "") {
		t.Fatal("expected sqlite unique violation to be detected")
	}
	if !IsLockTimeout(&pgconn.PgError{Code: "55P03"}) {
		t.Fatal("expected lock timeout")
	}
}

func TestQueryLoggerReportsSlowStatements(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: logger.FormatJSON})
	ql := newQueryLogger(logg, 10*time.Millisecond)

	stmt := func() (string, int64) { return `UPDATE stocks SET quantity = quantity - 1`, 1 }
	ql.Trace(context.Background(), time.Now(), stmt, nil)
	if buf.Len() != 0 {
		t.Fatalf("fast statement should not be logged: %s", buf.String())
	}

	ql.Trace(context.Background(), time.Now().Add(-time.Second), stmt, nil)
	if !strings.Contains(buf.String(), "UPDATE stocks") {
		t.Fatalf("expected slow statement in log, got %s", buf.String())
	}

	buf.Reset()
	ql.Trace(context.Background(), time.Now(), stmt, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("missing rows should not be logged: %s", buf.String())
	}

	ql.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), stmt, errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("silent mode should not log: %s", buf.String())
	}
}
