package domain

import (
	"time"

	"github.com/google/uuid"
)

// StockEventType tags a stock event for audit purposes. The effect of an event
// on stock is carried entirely by its signed Quantity.
type StockEventType string

const (
	StockEventInitial      StockEventType = "INITIAL"
	StockEventReservation  StockEventType = "RESERVATION"
	StockEventCancellation StockEventType = "CANCELLATION"
	StockEventRestock      StockEventType = "RESTOCK"
)

// Valid reports whether t is one of the known event types
func (t StockEventType) Valid() bool {
	switch t {
	case StockEventInitial, StockEventReservation, StockEventCancellation, StockEventRestock:
		return true
	}
	return false
}

// StockEvent is an immutable, append-only stock change record
type StockEvent struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	ProductID uuid.UUID      `json:"product_id" db:"product_id"`
	Type      StockEventType `json:"type" db:"type"`
	Quantity  int64          `json:"quantity" db:"quantity"`
	Reason    *string        `json:"reason,omitempty" db:"reason"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// StockHistory summarizes a product's event log
type StockHistory struct {
	ProductID    uuid.UUID              `json:"product_id"`
	CurrentStock int64                  `json:"current_stock"`
	TotalEvents  int                    `json:"total_events"`
	LastUpdated  *time.Time             `json:"last_updated,omitempty"`
	EventsByType map[StockEventType]int `json:"events_by_type"`
	Events       []StockEvent           `json:"events"`
}
