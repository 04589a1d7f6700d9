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
)

var ErrInvalidAmount = errors.New("amount must be a positive whole number")

// BalanceService defines the interface for user balance logic
type BalanceService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.BalanceInfo, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount float64) (*domain.BalanceInfo, error)
	// Withdraw fails with ErrInsufficientBalance rather than overdraw
	Withdraw(ctx context.Context, userID uuid.UUID, amount float64) (*domain.BalanceInfo, error)
}

type balanceService struct {
	balanceRepo repository.BalanceRepository
	uow         repository.UnitOfWork
}

// NewBalanceService creates a new instance of BalanceService
func NewBalanceService(balanceRepo repository.BalanceRepository, uow repository.UnitOfWork) BalanceService {
	return &balanceService{balanceRepo: balanceRepo, uow: uow}
}

func (s *balanceService) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.BalanceInfo, error) {
	events, err := s.balanceRepo.ListEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	info := &domain.BalanceInfo{UserID: userID, Events: events}
	for _, e := range events {
		info.CurrentBalance += e.Amount
	}
	return info, nil
}

func (s *balanceService) Deposit(ctx context.Context, userID uuid.UUID, amount float64) (*domain.BalanceInfo, error) {
	amt := ledger.NormalizeCount(amount)
	if amt == 0 {
		return nil, ErrInvalidAmount
	}

	err := s.uow.WithinTx(ctx, func(repos repository.TxRepositories) error {
		if err := repos.Balances.LockUser(ctx, userID); err != nil {
			return err
		}
		return repos.Balances.Append(ctx, newBalanceEvent(userID, domain.BalanceDeposit, amt))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deposit: %w", err)
	}

	return s.GetBalance(ctx, userID)
}

func (s *balanceService) Withdraw(ctx context.Context, userID uuid.UUID, amount float64) (*domain.BalanceInfo, error) {
	amt := ledger.NormalizeCount(amount)
	if amt == 0 {
		return nil, ErrInvalidAmount
	}

	err := s.uow.WithinTx(ctx, func(repos repository.TxRepositories) error {
		if err := repos.Balances.LockUser(ctx, userID); err != nil {
			return err
		}
		balance, err := repos.Balances.Balance(ctx, userID)
		if err != nil {
			return err
		}
		if balance < amt {
			return ErrInsufficientBalance
		}
		return repos.Balances.Append(ctx, newBalanceEvent(userID, domain.BalanceWithdrawal, -amt))
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to withdraw: %w", err)
	}

	return s.GetBalance(ctx, userID)
}

func newBalanceEvent(userID uuid.UUID, t domain.BalanceEventType, amount int64) *domain.BalanceEvent {
	return &domain.BalanceEvent{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      t,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
}
