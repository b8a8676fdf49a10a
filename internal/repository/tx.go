package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

type txKey struct{}

// Transactor runs a unit of work atomically. Repositories called with the
// context passed to fn take part in the same transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

// NewTransactor creates a transaction runner on db
func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

// Transaction commits when fn returns nil and rolls back otherwise. A call
// nested in an open transaction joins it.
func (t *gormTransactor) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom returns the transaction carried by ctx, or db when there is none.
func dbFrom(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// translate maps gorm errors onto the domain error kinds.
func translate(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(entity, id)
	}
	return apperrors.Database(err)
}
