package repository

import (
	"context"
	"database/sql"

	"storefront/internal/database"
)

// TxRepositories are the repositories bound to one transaction
type TxRepositories struct {
	Carts    CartRepository
	Orders   OrderRepository
	Balances BalanceRepository
}

// UnitOfWork runs multi-table writes atomically
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

type unitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork creates a UnitOfWork over the pool
func NewUnitOfWork(db *sql.DB) UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) WithinTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return database.WithTx(ctx, u.db, func(tx *sql.Tx) error {
		return fn(TxRepositories{
			Carts:    NewCartRepository(tx),
			Orders:   NewOrderRepository(tx),
			Balances: NewBalanceRepository(tx),
		})
	})
}
