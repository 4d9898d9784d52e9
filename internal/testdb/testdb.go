// Package testdb opens isolated in-memory sqlite databases migrated with the
// application models, for repository and service tests.
package testdb

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/db/models"
)

// WarehouseCode is the code of the online warehouse seeded by Open.
const WarehouseCode = "ONLINE"

// Open returns a fresh database with every table migrated and the online
// warehouse branch seeded. The pool holds a single connection, so
// concurrent transactions run one after another and never interleave.
// Interleaving tests run on postgres under the db build tag.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:moda_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.Branch{},
		&models.CatalogItem{},
		&models.Size{},
		&models.Stock{},
		&models.Cart{},
		&models.CartItem{},
		&models.Payment{},
		&models.Transaction{},
		&models.TransactionDetail{},
		&models.Shipping{},
		&models.Refund{},
		&models.UserInventory{},
		&models.Listing{},
		&models.Trade{},
		&models.TradeMessage{},
		&models.Review{},
		&models.Reputation{},
		&models.UserDevice{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	warehouse := models.Branch{Code: WarehouseCode, Name: "Online warehouse", IsOnlineWarehouse: true}
	if err := conn.Create(&warehouse).Error; err != nil {
		t.Fatalf("seed warehouse: %v", err)
	}
	return conn
}

// Branch inserts a retail branch.
func Branch(t *testing.T, conn *gorm.DB, code string) models.Branch {
	t.Helper()
	b := models.Branch{Code: code, Name: code}
	if err := conn.Create(&b).Error; err != nil {
		t.Fatalf("seed branch %s: %v", code, err)
	}
	return b
}

// Warehouse loads the seeded online warehouse.
func Warehouse(t *testing.T, conn *gorm.DB) models.Branch {
	t.Helper()
	var b models.Branch
	if err := conn.Where("code = ?", WarehouseCode).First(&b).Error; err != nil {
		t.Fatalf("load warehouse: %v", err)
	}
	return b
}

// Item inserts a catalog item with one size per label/total pair.
func Item(t *testing.T, conn *gorm.DB, price int64, sizes map[string]int) (models.CatalogItem, map[string]models.Size) {
	t.Helper()
	item := models.CatalogItem{Name: "item-" + uuid.NewString()[:8], Price: price}
	if err := conn.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	out := make(map[string]models.Size, len(sizes))
	for label, total := range sizes {
		size := models.Size{ItemID: item.ID, Label: label, TotalQuantity: total}
		if err := conn.Create(&size).Error; err != nil {
			t.Fatalf("seed size %s: %v", label, err)
		}
		out[label] = size
	}
	return item, out
}

// Stock inserts a stock row.
func Stock(t *testing.T, conn *gorm.DB, branchID, sizeID uuid.UUID, qty int) models.Stock {
	t.Helper()
	s := models.Stock{BranchID: branchID, SizeID: sizeID, Quantity: qty}
	if err := conn.Create(&s).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return s
}
