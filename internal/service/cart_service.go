package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive whole number")
	ErrCartInvalid     = errors.New("cart validation failed")
)

// CartProblem is one reason a cart cannot be checked out
type CartProblem struct {
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Message   string     `json:"message"`
}

// CartValidationError lists every problem found in a cart
type CartValidationError struct {
	Problems []CartProblem
}

func (e *CartValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Message
	}
	return ErrCartInvalid.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *CartValidationError) Is(target error) bool {
	return target == ErrCartInvalid
}

// CartService defines the interface for cart business logic
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity float64) (*domain.Cart, error)
	// UpdateItem sets a line's quantity. Zero removes the line.
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity float64) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// Validate checks every line against current stock. On failure the
	// returned error is a *CartValidationError carrying all problems.
	Validate(ctx context.Context, userID uuid.UUID) (*domain.ValidatedCart, error)
}

type cartService struct {
	cartRepo repository.CartRepository
	ledger   *ledger.Ledger
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, l *ledger.Ledger) CartService {
	return &cartService{cartRepo: cartRepo, ledger: l}
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity float64) (*domain.Cart, error) {
	qty := ledger.NormalizeCount(quantity)
	if qty == 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.AddItem(ctx, cart.ID, productID, qty); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *cartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity float64) (*domain.Cart, error) {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.SetItemQuantity(ctx, cart.ID, productID, ledger.NormalizeCount(quantity)); err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.RemoveItem(ctx, cart.ID, productID); err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.Clear(ctx, cart.ID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	cart.Items = []domain.CartItem{}
	return cart, nil
}

func (s *cartService) Validate(ctx context.Context, userID uuid.UUID) (*domain.ValidatedCart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return validateCart(ctx, s.ledger, cart)
}

// validateCart prices every line and checks it against the folded stock. All
// problems are collected before returning.
func validateCart(ctx context.Context, l *ledger.Ledger, cart *domain.Cart) (*domain.ValidatedCart, error) {
	if len(cart.Items) == 0 {
		return nil, &CartValidationError{Problems: []CartProblem{{Message: "cart is empty"}}}
	}

	var problems []CartProblem
	validated := &domain.ValidatedCart{Items: make([]domain.ValidatedCartItem, 0, len(cart.Items))}

	for _, item := range cart.Items {
		productID := item.ProductID
		name := productID.String()
		var price int64
		if item.Product != nil {
			name = item.Product.Name
			price = item.Product.Price
		}

		if item.Quantity <= 0 {
			problems = append(problems, CartProblem{
				ProductID: &productID,
				Message:   fmt.Sprintf("%s: quantity must be positive", name),
			})
			continue
		}

		stock, err := l.CurrentStock(ctx, productID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				problems = append(problems, CartProblem{
					ProductID: &productID,
					Message:   fmt.Sprintf("%s: product no longer exists", name),
				})
				continue
			}
			return nil, fmt.Errorf("failed to read stock: %w", err)
		}

		if item.Quantity > stock {
			problems = append(problems, CartProblem{
				ProductID: &productID,
				Message:   fmt.Sprintf("%s: requested %d but only %d available", name, item.Quantity, stock),
			})
			continue
		}

		subtotal := price * item.Quantity
		validated.Items = append(validated.Items, domain.ValidatedCartItem{
			ProductID:      productID,
			ProductName:    name,
			Quantity:       item.Quantity,
			Price:          price,
			Subtotal:       subtotal,
			AvailableStock: stock,
		})
		validated.TotalAmount += subtotal
	}

	if len(problems) > 0 {
		return nil, &CartValidationError{Problems: problems}
	}

	return validated, nil
}
