package repo

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type lockRow struct {
	ID int
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:repo_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return conn
}

func openPostgresDryRun(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=moda dbname=moda sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("open postgres dry run: %v", err)
	}
	return conn
}

func lockedSelect(base Base) string {
	return base.DB(context.Background()).ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []lockRow
		return tx.Table("stock").Where("size_id = ?", 1).Scopes(base.ForUpdate()).Find(&rows)
	})
}

func TestDBCarriesContext(t *testing.T) {
	conn := openSQLite(t)
	base := NewBase(conn)

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	if got := base.DB(ctx).Statement.Context; got != ctx {
		t.Fatalf("expected context to flow through, got %v", got)
	}
	if base.DB(nil) != conn {
		t.Fatalf("nil context should return the raw connection")
	}
}

func TestBindSwapsConnection(t *testing.T) {
	conn := openSQLite(t)
	base := NewBase(conn)

	if got := base.Bind(nil); got.db != conn {
		t.Fatalf("nil tx should keep the connection")
	}
	tx := conn.Begin()
	defer tx.Rollback()
	if got := base.Bind(tx); got.db != tx {
		t.Fatalf("expected bound tx")
	}
}

func TestForUpdateOnlyLocksOnPostgres(t *testing.T) {
	if sql := lockedSelect(NewBase(openPostgresDryRun(t))); !strings.HasSuffix(sql, "FOR UPDATE") {
		t.Fatalf("expected FOR UPDATE on postgres, got %q", sql)
	}
	if sql := lockedSelect(NewBase(openSQLite(t))); strings.Contains(sql, "FOR UPDATE") {
		t.Fatalf("sqlite must not lock rows, got %q", sql)
	}
}
