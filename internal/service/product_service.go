package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrNotSeller    = errors.New("only sellers can create products")
	ErrInvalidPrice = errors.New("price must be a non-negative number")

	// ErrInvalidInitialStock matches ledger.ErrInvalidQuantity under errors.Is
	ErrInvalidInitialStock = fmt.Errorf("%w: initial stock must be a finite number from 0 to %d", ledger.ErrInvalidQuantity, int64(ledger.MaxQuantity))
)

// CreateProductInput carries a new product. Price and InitialStock are floored.
type CreateProductInput struct {
	Name         string
	Description  string
	Price        float64
	SellerID     uuid.UUID
	InitialStock float64
}

// UpdateProductInput carries a partial product update. Nil fields are left
// untouched and Price is floored.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
}

// StockSummary is the current stock view of a product
type StockSummary struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	CurrentStock int64     `json:"current_stock"`
	TotalEvents  int       `json:"total_events"`
	LastUpdated  time.Time `json:"last_updated"`
}

// ProductService defines the interface for product business logic
type ProductService interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*domain.ProductWithStock, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductWithStock, error)
	ListProducts(ctx context.Context, sellerID *uuid.UUID, page, pageSize int) ([]*domain.ProductWithStock, int, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	StockSummary(ctx context.Context, id uuid.UUID) (*StockSummary, error)
}

type productService struct {
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	ledger      *ledger.Ledger
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, userRepo repository.UserRepository, l *ledger.Ledger) ProductService {
	return &productService{
		productRepo: productRepo,
		userRepo:    userRepo,
		ledger:      l,
	}
}

// CreateProduct stores the product together with its INITIAL stock event
func (s *productService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.ProductWithStock, error) {
	price, err := floorPrice(input.Price)
	if err != nil {
		return nil, err
	}
	if !ledger.ValidInitialStock(input.InitialStock) {
		return nil, ErrInvalidInitialStock
	}

	seller, err := s.userRepo.FindByID(ctx, input.SellerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, repository.ErrSellerNotFound
		}
		return nil, fmt.Errorf("failed to find seller: %w", err)
	}
	if seller.Role != domain.RoleSeller {
		return nil, ErrNotSeller
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Price:       price,
		SellerID:    seller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	initial := s.ledger.InitialEvent(product.ID, input.InitialStock)

	if err := s.productRepo.CreateWithInitialStock(ctx, product, initial); err != nil {
		if errors.Is(err, repository.ErrSellerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return &domain.ProductWithStock{
		Product: *product,
		Stock:   initial.Quantity,
		Seller:  seller,
	}, nil
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductWithStock, error) {
	product, err := s.productRepo.FindWithStock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, sellerID *uuid.UUID, page, pageSize int) ([]*domain.ProductWithStock, int, error) {
	products, total, err := s.productRepo.List(ctx, sellerID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// UpdateProduct changes descriptive fields only. Stock moves through the
// ledger, never through a product update.
func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error) {
	patch := domain.ProductPatch{Name: input.Name, Description: input.Description}
	if input.Price != nil {
		price, err := floorPrice(*input.Price)
		if err != nil {
			return nil, err
		}
		patch.Price = &price
	}

	product, err := s.productRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// StockSummary folds the product's events. LastUpdated falls back to the
// product's creation time when it has no events.
func (s *productService) StockSummary(ctx context.Context, id uuid.UUID) (*StockSummary, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	history, err := s.ledger.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock events: %w", err)
	}

	summary := &StockSummary{
		ProductID:    product.ID,
		ProductName:  product.Name,
		CurrentStock: history.CurrentStock,
		TotalEvents:  history.TotalEvents,
		LastUpdated:  product.CreatedAt,
	}
	if history.LastUpdated != nil {
		summary.LastUpdated = *history.LastUpdated
	}

	return summary, nil
}

// floorPrice converts a price to whole minor units
func floorPrice(p float64) (int64, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > ledger.MaxQuantity {
		return 0, ErrInvalidPrice
	}
	return int64(math.Floor(p)), nil
}
