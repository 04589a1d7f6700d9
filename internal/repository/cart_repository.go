package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	// GetOrCreate returns the user's cart with its items, creating an empty
	// cart on first use
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// AddItem adds quantity to the product's line, creating the line if needed
	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int64) error
	SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int64) error
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at, updated_at
	`

	cart := &domain.Cart{}
	err := r.db.QueryRowContext(ctx, query, uuid.New(), userID, now).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if isConstraintViolation(err, pgForeignKeyViolation, "fk_carts_user") {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	items, err := r.items(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

func (r *cartRepository) items(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at,
		       p.id, p.name, p.description, p.price, p.seller_id, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at ASC, ci.id
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		item := domain.CartItem{Product: &domain.Product{}}
		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.CreatedAt,
			&item.Product.ID,
			&item.Product.Name,
			&item.Product.Description,
			&item.Product.Price,
			&item.Product.SellerID,
			&item.Product.CreatedAt,
			&item.Product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

func (r *cartRepository) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int64) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity
	`

	_, err := r.db.ExecContext(ctx, query, uuid.New(), cartID, productID, quantity, time.Now().UTC())
	if err != nil {
		if isConstraintViolation(err, pgForeignKeyViolation, "fk_cart_items_product") {
			return ErrProductNotFound
		}
		if isConstraintViolation(err, pgForeignKeyViolation, "fk_cart_items_cart") {
			return ErrCartNotFound
		}
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	return r.touch(ctx, cartID)
}

// SetItemQuantity overwrites a line's quantity. Zero or less removes the line.
func (r *cartRepository) SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return r.RemoveItem(ctx, cartID, productID)
	}

	query := `UPDATE cart_items SET quantity = $3 WHERE cart_id = $1 AND product_id = $2`

	result, err := r.db.ExecContext(ctx, query, cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return r.touch(ctx, cartID)
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	result, err := r.db.ExecContext(ctx, query, cartID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return r.touch(ctx, cartID)
}

func (r *cartRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return r.touch(ctx, cartID)
}

func (r *cartRepository) touch(ctx context.Context, cartID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCartNotFound
	}
	return nil
}
