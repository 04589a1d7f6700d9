package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is a state of the order state machine
type OrderStatus string

const (
	OrderPending        OrderStatus = "PENDING"
	OrderPaymentPage    OrderStatus = "PAYMENT_PAGE"
	OrderPaymentSuccess OrderStatus = "PAYMENT_SUCCESS"
	OrderPaymentFailed  OrderStatus = "PAYMENT_FAILED"
)

// CanTransitionTo reports whether the state machine allows moving from s to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderPaymentPage || next == OrderPaymentFailed
	case OrderPaymentPage:
		return next == OrderPaymentSuccess || next == OrderPaymentFailed
	}
	return false
}

// PaymentMethod labels how an order was paid. No gateway is involved.
type PaymentMethod string

const (
	PaymentBalance      PaymentMethod = "BALANCE"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
)

// Valid reports whether m is a supported payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentBalance, PaymentBankTransfer, PaymentCreditCard:
		return true
	}
	return false
}

// Order is a checked-out cart
type Order struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	UserID        uuid.UUID      `json:"user_id" db:"user_id"`
	TotalAmount   int64          `json:"total_amount" db:"total_amount"`
	Status        OrderStatus    `json:"status" db:"status"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty" db:"payment_method"`
	FailureReason *string        `json:"failure_reason,omitempty" db:"failure_reason"`
	Items         []OrderItem    `json:"items"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// OrderItem is an order line with the unit price captured at checkout
type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int64     `json:"quantity" db:"quantity"`
	Price     int64     `json:"price" db:"price"`
}
