package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/ledger"

	"github.com/google/uuid"
)

// stockEventRepository is the PostgreSQL ledger.Store. Outside a product lock
// it runs on the pool; inside one every statement runs on the lock's
// transaction.
type stockEventRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewStockEventRepository creates a ledger.Store backed by the stock_events table
func NewStockEventRepository(db *sql.DB) ledger.Store {
	return &stockEventRepository{db: db}
}

func (r *stockEventRepository) q() DBTX {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// ListEvents returns the product's events ordered by (created_at, seq). The
// product row is joined so an unknown product and a product without events
// are told apart in one consistent read.
func (r *stockEventRepository) ListEvents(ctx context.Context, productID uuid.UUID) ([]domain.StockEvent, error) {
	query := `
		SELECT e.id, e.type, e.quantity, e.reason, e.created_at
		FROM products p
		LEFT JOIN stock_events e ON e.product_id = p.id
		WHERE p.id = $1
		ORDER BY e.created_at ASC, e.seq ASC
	`

	rows, err := r.q().QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock events: %w", err)
	}
	defer rows.Close()

	found := false
	events := []domain.StockEvent{}
	for rows.Next() {
		found = true

		var (
			id        uuid.NullUUID
			eventType sql.NullString
			quantity  sql.NullInt64
			reason    sql.NullString
			createdAt sql.NullTime
		)
		if err := rows.Scan(&id, &eventType, &quantity, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock event: %w", err)
		}
		if !id.Valid {
			continue
		}

		event := domain.StockEvent{
			ID:        id.UUID,
			ProductID: productID,
			Type:      domain.StockEventType(eventType.String),
			Quantity:  quantity.Int64,
			CreatedAt: createdAt.Time,
		}
		if reason.Valid {
			text := reason.String
			event.Reason = &text
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock events: %w", err)
	}

	if !found {
		return nil, ErrProductNotFound
	}

	return events, nil
}

func (r *stockEventRepository) AppendEvent(ctx context.Context, event *domain.StockEvent) error {
	return insertStockEvent(ctx, r.q(), event)
}

// WithinProductLock takes the product row lock with SELECT ... FOR UPDATE and
// runs fn on the same transaction. Concurrent lockers of the same product wait
// for the commit. Nested calls reuse the current transaction.
func (r *stockEventRepository) WithinProductLock(ctx context.Context, productID uuid.UUID, fn func(ledger.Store) error) error {
	if r.tx != nil {
		if err := lockProduct(ctx, r.tx, productID); err != nil {
			return err
		}
		return fn(r)
	}

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockProduct(ctx, tx, productID); err != nil {
			return err
		}
		return fn(&stockEventRepository{db: r.db, tx: tx})
	})
}

func lockProduct(ctx context.Context, tx *sql.Tx, productID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to lock product: %w", err)
	}
	return nil
}

func insertStockEvent(ctx context.Context, q DBTX, event *domain.StockEvent) error {
	query := `
		INSERT INTO stock_events (id, product_id, type, quantity, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := q.ExecContext(
		ctx,
		query,
		event.ID,
		event.ProductID,
		event.Type,
		event.Quantity,
		event.Reason,
		event.CreatedAt,
	)

	if err != nil {
		if isConstraintViolation(err, pgForeignKeyViolation, "fk_stock_events_product") {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to append stock event: %w", err)
	}

	return nil
}
