package domain

import (
	"time"

	"github.com/google/uuid"
)

// BalanceEventType tags a balance change
type BalanceEventType string

const (
	BalanceDeposit          BalanceEventType = "DEPOSIT"
	BalanceWithdrawal       BalanceEventType = "WITHDRAWAL"
	BalancePaymentDeduction BalanceEventType = "PAYMENT_DEDUCTION"
	BalanceRefund           BalanceEventType = "REFUND"
)

// BalanceEvent is an immutable signed change to a user's balance
type BalanceEvent struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Type      BalanceEventType `json:"type" db:"type"`
	Amount    int64            `json:"amount" db:"amount"`
	OrderID   *uuid.UUID       `json:"order_id,omitempty" db:"order_id"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// BalanceInfo is a user's folded balance together with its history
type BalanceInfo struct {
	UserID         uuid.UUID      `json:"user_id"`
	CurrentBalance int64          `json:"current_balance"`
	Events         []BalanceEvent `json:"events"`
}
