package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories that share one database handle, so a unit of
// work can run all of them inside a single transaction.
type Store struct {
	db       *gorm.DB
	Products ProductRepository
	Carts    CartRepository
	Orders   OrderRepository
	Payments PaymentRepository
	Refunds  RefundRepository
}

// NewStore wires every repository to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Products: NewGormProductRepository(db),
		Carts:    NewGormCartRepository(db),
		Orders:   NewGormOrderRepository(db),
		Payments: NewGormPaymentRepository(db),
		Refunds:  NewGormRefundRepository(db),
	}
}

// Transaction runs fn against a Store bound to one transaction. Returning an
// error from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
