package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

// BalanceRepository defines the interface for balance event data access
type BalanceRepository interface {
	// LockUser takes the user's row lock for the rest of the surrounding
	// transaction. Balance checks followed by a debit must hold it.
	LockUser(ctx context.Context, userID uuid.UUID) error
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	ListEvents(ctx context.Context, userID uuid.UUID) ([]domain.BalanceEvent, error)
	Append(ctx context.Context, event *domain.BalanceEvent) error
}

type balanceRepository struct {
	db DBTX
}

// NewBalanceRepository creates a new instance of BalanceRepository
func NewBalanceRepository(db DBTX) BalanceRepository {
	return &balanceRepository{db: db}
}

func (r *balanceRepository) LockUser(ctx context.Context, userID uuid.UUID) error {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to lock user: %w", err)
	}
	return nil
}

func (r *balanceRepository) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE((SELECT SUM(b.amount) FROM balance_events b WHERE b.user_id = u.id), 0)::BIGINT
		FROM users u
		WHERE u.id = $1
	`

	var balance int64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to compute balance: %w", err)
	}

	return balance, nil
}

func (r *balanceRepository) ListEvents(ctx context.Context, userID uuid.UUID) ([]domain.BalanceEvent, error) {
	query := `
		SELECT b.id, b.type, b.amount, b.order_id, b.created_at
		FROM users u
		LEFT JOIN balance_events b ON b.user_id = u.id
		WHERE u.id = $1
		ORDER BY b.created_at ASC, b.seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balance events: %w", err)
	}
	defer rows.Close()

	found := false
	events := []domain.BalanceEvent{}
	for rows.Next() {
		found = true

		var (
			id        uuid.NullUUID
			eventType sql.NullString
			amount    sql.NullInt64
			orderID   uuid.NullUUID
			createdAt sql.NullTime
		)
		if err := rows.Scan(&id, &eventType, &amount, &orderID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance event: %w", err)
		}
		if !id.Valid {
			continue
		}

		event := domain.BalanceEvent{
			ID:        id.UUID,
			UserID:    userID,
			Type:      domain.BalanceEventType(eventType.String),
			Amount:    amount.Int64,
			CreatedAt: createdAt.Time,
		}
		if orderID.Valid {
			oid := orderID.UUID
			event.OrderID = &oid
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance events: %w", err)
	}

	if !found {
		return nil, ErrUserNotFound
	}

	return events, nil
}

func (r *balanceRepository) Append(ctx context.Context, event *domain.BalanceEvent) error {
	query := `
		INSERT INTO balance_events (id, user_id, type, amount, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.UserID,
		event.Type,
		event.Amount,
		event.OrderID,
		event.CreatedAt,
	)
	if err != nil {
		if isConstraintViolation(err, pgForeignKeyViolation, "fk_balance_events_user") {
			return ErrUserNotFound
		}
		if isConstraintViolation(err, pgForeignKeyViolation, "fk_balance_events_order") {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to append balance event: %w", err)
	}

	return nil
}
