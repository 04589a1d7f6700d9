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

var (
	ErrInvalidPaymentMethod = errors.New("payment method must be BALANCE, BANK_TRANSFER or CREDIT_CARD")
	ErrInsufficientBalance  = errors.New("insufficient balance")
)

// PaymentService settles orders that are on the payment page
type PaymentService interface {
	// Pay settles the order with the given method. A BALANCE payment the user
	// cannot cover fails the order and releases its stock; the failed order is
	// returned without an error.
	Pay(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod) (*domain.Order, error)
}

type paymentService struct {
	orderRepo repository.OrderRepository
	uow       repository.UnitOfWork
	ledger    *ledger.Ledger
	logger    *zap.Logger
}

// NewPaymentService creates a new instance of PaymentService
func NewPaymentService(orderRepo repository.OrderRepository, uow repository.UnitOfWork, l *ledger.Ledger, logger *zap.Logger) PaymentService {
	return &paymentService{
		orderRepo: orderRepo,
		uow:       uow,
		ledger:    l,
		logger:    logger,
	}
}

func (s *paymentService) Pay(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod) (*domain.Order, error) {
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order.Status != domain.OrderPaymentPage {
		return nil, repository.ErrInvalidStatusTransition
	}

	if method != domain.PaymentBalance {
		paid, err := s.orderRepo.TransitionStatus(ctx, orderID, domain.OrderPaymentPage, domain.OrderPaymentSuccess, &method, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to settle order: %w", err)
		}
		s.logPaid(paid)
		return paid, nil
	}

	var paid *domain.Order
	err = s.uow.WithinTx(ctx, func(repos repository.TxRepositories) error {
		if err := repos.Balances.LockUser(ctx, order.UserID); err != nil {
			return err
		}

		balance, err := repos.Balances.Balance(ctx, order.UserID)
		if err != nil {
			return err
		}
		if balance < order.TotalAmount {
			return ErrInsufficientBalance
		}

		oid := order.ID
		deduction := &domain.BalanceEvent{
			ID:        uuid.New(),
			UserID:    order.UserID,
			Type:      domain.BalancePaymentDeduction,
			Amount:    -order.TotalAmount,
			OrderID:   &oid,
			CreatedAt: time.Now().UTC(),
		}
		if err := repos.Balances.Append(ctx, deduction); err != nil {
			return err
		}

		paid, err = repos.Orders.TransitionStatus(ctx, order.ID, domain.OrderPaymentPage, domain.OrderPaymentSuccess, &method, nil)
		return err
	})

	if errors.Is(err, ErrInsufficientBalance) {
		return s.fail(ctx, order, method, "Insufficient balance")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to settle order: %w", err)
	}

	s.logPaid(paid)
	return paid, nil
}

func (s *paymentService) fail(ctx context.Context, order *domain.Order, method domain.PaymentMethod, reason string) (*domain.Order, error) {
	failed, err := s.orderRepo.TransitionStatus(ctx, order.ID, domain.OrderPaymentPage, domain.OrderPaymentFailed, &method, &reason)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order as failed: %w", err)
	}

	releaseStock(context.WithoutCancel(ctx), s.ledger, s.logger, failed.ID, failed.Items)

	s.logger.Info("Order payment failed",
		zap.String("order_id", failed.ID.String()),
		zap.String("reason", reason),
	)
	return failed, nil
}

func (s *paymentService) logPaid(order *domain.Order) {
	s.logger.Info("Order paid",
		zap.String("order_id", order.ID.String()),
		zap.Int64("total_amount", order.TotalAmount),
	)
}
