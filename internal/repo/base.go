// Package repo holds what every gorm-backed repository shares: the bound
// connection and dialect-aware row locking.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dialectPostgres = "postgres"

type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection, scoped to ctx when one is given.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a Base that runs on tx. A nil tx keeps the current connection.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

func (b Base) dialect() string {
	if b.db == nil || b.db.Dialector == nil {
		return ""
	}
	return b.db.Dialector.Name()
}

// ForUpdate is a scope adding SELECT ... FOR UPDATE on postgres. sqlite has
// no row locks and serializes writers on its own, so the scope is a no-op there.
func (b Base) ForUpdate() func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if b.dialect() != dialectPostgres {
			return q
		}
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
}
