package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("order is not in a state that allows this transition")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// Create inserts the order and its items. Callers wanting the two to be
	// atomic run it through a UnitOfWork.
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	// TransitionStatus moves the order from one status to another. The update
	// only applies while the order is still in from, so two racing transitions
	// cannot both win.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, method *domain.PaymentMethod, failureReason *string) (*domain.Order, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
}

type orderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, total_amount, status, payment_method, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.UserID,
		order.TotalAmount,
		order.Status,
		order.PaymentMethod,
		order.FailureReason,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isConstraintViolation(err, pgForeignKeyViolation, "fk_orders_user") {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		_, err := r.db.ExecContext(ctx, itemQuery, item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price)
		if err != nil {
			if isConstraintViolation(err, pgForeignKeyViolation, "fk_order_items_product") {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

const orderColumns = `id, user_id, total_amount, status, payment_method, failure_reason, created_at, updated_at`

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	if err := r.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, pageSize, offsetFor(page, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		byID[o.ID] = o
		o.Items = []domain.OrderItem{}
	}

	query := `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, id
	`

	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}

func (r *orderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, method *domain.PaymentMethod, failureReason *string) (*domain.Order, error) {
	if !from.CanTransitionTo(to) {
		return nil, ErrInvalidStatusTransition
	}

	query := `
		UPDATE orders
		SET status = $3,
		    payment_method = COALESCE($4, payment_method),
		    failure_reason = $5
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, from, to, method, failureReason))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, findErr := r.FindByID(ctx, id); findErr != nil {
				return nil, findErr
			}
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	if err := r.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()

	counts := map[domain.OrderStatus]int{}
	for rows.Next() {
		var status domain.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		counts[status] = n
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order counts: %w", err)
	}

	return counts, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var method, reason sql.NullString
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.Status,
		&method,
		&reason,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if method.Valid {
		m := domain.PaymentMethod(method.String)
		order.PaymentMethod = &m
	}
	if reason.Valid {
		text := reason.String
		order.FailureReason = &text
	}
	return order, nil
}
