package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound  = domain.ErrProductNotFound
	ErrSellerNotFound   = errors.New("seller not found")
	ErrProductHasOrders = errors.New("product is referenced by orders")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// CreateWithInitialStock inserts the product and its INITIAL stock event
	// in one transaction
	CreateWithInitialStock(ctx context.Context, product *domain.Product, initial *domain.StockEvent) error
	Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindWithStock(ctx context.Context, id uuid.UUID) (*domain.ProductWithStock, error)
	List(ctx context.Context, sellerID *uuid.UUID, page, pageSize int) ([]*domain.ProductWithStock, int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) CreateWithInitialStock(ctx context.Context, product *domain.Product, initial *domain.StockEvent) error {
	query := `
		INSERT INTO products (id, name, description, price, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			query,
			product.ID,
			product.Name,
			product.Description,
			product.Price,
			product.SellerID,
			product.CreatedAt,
			product.UpdatedAt,
		)
		if err != nil {
			if isConstraintViolation(err, pgForeignKeyViolation, "fk_products_seller") {
				return ErrSellerNotFound
			}
			return fmt.Errorf("failed to create product: %w", err)
		}

		if initial != nil {
			if err := insertStockEvent(ctx, tx, initial); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update applies the non-nil fields of patch. Stock is not a product column
// and cannot be changed here.
func (r *productRepository) Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	sets := []string{}
	args := []interface{}{id}
	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.Price != nil {
		args = append(args, *patch.Price)
		sets = append(sets, fmt.Sprintf("price = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		UPDATE products
		SET %s
		WHERE id = $1
		RETURNING id, name, description, price, seller_id, created_at, updated_at
	`, strings.Join(sets, ", "))

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// Delete removes a product together with its stock events and cart lines.
// Products that appear on an order are kept so order totals stay reproducible.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if isConstraintViolation(err, pgForeignKeyViolation, "fk_order_items_product") {
			return ErrProductHasOrders
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, description, price, seller_id, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// productWithStockColumns selects a product, its seller and its folded stock
const productWithStockColumns = `
	p.id, p.name, p.description, p.price, p.seller_id, p.created_at, p.updated_at,
	u.id, u.email, u.name, u.role, u.created_at, u.updated_at,
	COALESCE((SELECT SUM(e.quantity) FROM stock_events e WHERE e.product_id = p.id), 0)::BIGINT
`

// FindWithStock retrieves a product together with its seller and current stock
func (r *productRepository) FindWithStock(ctx context.Context, id uuid.UUID) (*domain.ProductWithStock, error) {
	query := `
		SELECT ` + productWithStockColumns + `
		FROM products p
		JOIN users u ON u.id = p.seller_id
		WHERE p.id = $1
	`

	product, err := scanProductWithStock(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product with stock: %w", err)
	}

	return product, nil
}

// List retrieves products newest first with their current stock, optionally
// restricted to one seller
func (r *productRepository) List(ctx context.Context, sellerID *uuid.UUID, page, pageSize int) ([]*domain.ProductWithStock, int, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	if sellerID != nil {
		whereClause = fmt.Sprintf("WHERE p.seller_id = $%d", argIndex)
		args = append(args, *sellerID)
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products p %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN users u ON u.id = p.seller_id
		%s
		ORDER BY p.created_at DESC, p.id
		LIMIT $%d OFFSET $%d
	`, productWithStockColumns, whereClause, argIndex, argIndex+1)

	args = append(args, pageSize, offsetFor(page, pageSize))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.ProductWithStock{}
	for rows.Next() {
		product, err := scanProductWithStock(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.SellerID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func scanProductWithStock(row rowScanner) (*domain.ProductWithStock, error) {
	product := &domain.ProductWithStock{Seller: &domain.User{}}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.SellerID,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Seller.ID,
		&product.Seller.Email,
		&product.Seller.Name,
		&product.Seller.Role,
		&product.Seller.CreatedAt,
		&product.Seller.UpdatedAt,
		&product.Stock,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}
