package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService defines the interface for checkout and order lifecycle logic
type OrderService interface {
	// Checkout turns the user's cart into a PAYMENT_PAGE order. Stock for
	// every line is reserved first; if any line cannot be reserved the lines
	// already reserved are cancelled and nothing is persisted.
	Checkout(ctx context.Context, userID uuid.UUID) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	// CancelOrder fails an unpaid order and gives its stock back
	CancelOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type orderService struct {
	cartRepo  repository.CartRepository
	orderRepo repository.OrderRepository
	uow       repository.UnitOfWork
	ledger    *ledger.Ledger
	logger    *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	uow repository.UnitOfWork,
	l *ledger.Ledger,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		uow:       uow,
		ledger:    l,
		logger:    logger,
	}
}

func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	validated, err := validateCart(ctx, s.ledger, cart)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:          uuid.New(),
		UserID:      userID,
		TotalAmount: validated.TotalAmount,
		Status:      domain.OrderPaymentPage,
		Items:       make([]domain.OrderItem, 0, len(validated.Items)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, line := range validated.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	for i, item := range order.Items {
		ok, err := s.ledger.Reserve(ctx, item.ProductID, float64(item.Quantity))
		if err != nil {
			s.releaseStock(ctx, order.ID, order.Items[:i])
			return nil, fmt.Errorf("failed to reserve stock: %w", err)
		}
		if !ok {
			s.releaseStock(ctx, order.ID, order.Items[:i])
			return nil, fmt.Errorf("%w: %s", ledger.ErrInsufficientStock, validated.Items[i].ProductName)
		}
	}

	err = s.uow.WithinTx(ctx, func(repos repository.TxRepositories) error {
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}
		return repos.Carts.Clear(ctx, cart.ID)
	})
	if err != nil {
		s.releaseStock(ctx, order.ID, order.Items)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("Order checked out",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int64("total_amount", order.TotalAmount),
		zap.Int("items", len(order.Items)),
	)

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	orders, total, err := s.orderRepo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (s *orderService) CancelOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	reason := "Cancelled by user"
	order, err := s.orderRepo.TransitionStatus(ctx, id, domain.OrderPaymentPage, domain.OrderPaymentFailed, nil, &reason)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	s.releaseStock(ctx, order.ID, order.Items)
	return order, nil
}

// releaseStock appends a CANCELLATION for every item. It runs detached from
// the request's cancellation so a dropped client cannot leave stock reserved.
func (s *orderService) releaseStock(ctx context.Context, orderID uuid.UUID, items []domain.OrderItem) {
	releaseStock(context.WithoutCancel(ctx), s.ledger, s.logger, orderID, items)
}

func releaseStock(ctx context.Context, l *ledger.Ledger, logger *zap.Logger, orderID uuid.UUID, items []domain.OrderItem) {
	for _, item := range items {
		if _, err := l.CancelReservation(ctx, item.ProductID, float64(item.Quantity)); err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				continue
			}
			logger.Error("Failed to release reserved stock",
				zap.String("order_id", orderID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Int64("quantity", item.Quantity),
				zap.Error(err),
			)
		}
	}
}
