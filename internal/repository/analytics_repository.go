package repository

import (
	"context"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

// AnalyticsRepository reads the raw material for sales statistics
type AnalyticsRepository interface {
	// SaleLines returns one line per item of every PAYMENT_SUCCESS order,
	// restricted to the seller's products when sellerID is set
	SaleLines(ctx context.Context, sellerID *uuid.UUID) ([]domain.SaleLine, error)
}

type analyticsRepository struct {
	db DBTX
}

// NewAnalyticsRepository creates a new instance of AnalyticsRepository
func NewAnalyticsRepository(db DBTX) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) SaleLines(ctx context.Context, sellerID *uuid.UUID) ([]domain.SaleLine, error) {
	query := `
		SELECT o.id, oi.product_id, p.name, oi.quantity, oi.price, o.updated_at
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		WHERE o.status = $1
	`
	args := []interface{}{domain.OrderPaymentSuccess}
	if sellerID != nil {
		query += " AND p.seller_id = $2"
		args = append(args, *sellerID)
	}
	query += " ORDER BY o.updated_at ASC, o.id, oi.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sale lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.SaleLine{}
	for rows.Next() {
		var line domain.SaleLine
		err := rows.Scan(
			&line.OrderID,
			&line.ProductID,
			&line.ProductName,
			&line.Quantity,
			&line.Price,
			&line.PaidAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale line: %w", err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale lines: %w", err)
	}

	return lines, nil
}
