// Package ledger derives product stock from an append-only log of signed
// stock events and gates stock-decreasing operations on sufficiency.
//
// Current stock is never stored. It is the sum of the quantities of every
// event recorded for a product, folded in creation order. Reservations run
// inside the store's per-product lock so that two concurrent reservations on
// the same product cannot both observe enough stock and overdraw it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be a non-zero whole number")
	ErrInvalidEventType  = errors.New("invalid stock event type")
	ErrSignMismatch      = errors.New("quantity sign does not match event type")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStockLimit        = errors.New("stock would exceed the supported range")
)

// Store persists stock events. Implementations must return
// domain.ErrProductNotFound for unknown products.
type Store interface {
	// ListEvents returns the product's events in fold order
	ListEvents(ctx context.Context, productID uuid.UUID) ([]domain.StockEvent, error)
	// AppendEvent writes one new immutable event
	AppendEvent(ctx context.Context, event *domain.StockEvent) error
	// WithinProductLock runs fn while holding the product's exclusive lock.
	// The Store handed to fn must be used for every read and write inside it.
	WithinProductLock(ctx context.Context, productID uuid.UUID, fn func(Store) error) error
}

// Observer receives ledger outcomes, typically for metrics
type Observer interface {
	EventRecorded(t domain.StockEventType)
	ReservationAttempted(accepted bool)
}

type nopObserver struct{}

func (nopObserver) EventRecorded(domain.StockEventType) {}
func (nopObserver) ReservationAttempted(bool)           {}

// Options configures a Ledger
type Options struct {
	// StrictSigns ties the sign of externally recorded events to their type:
	// RESERVATION must be negative and pass the sufficiency check, every
	// other type must be positive. When false any non-zero quantity is
	// accepted as supplied.
	StrictSigns bool
	Observer    Observer
	Clock       func() time.Time
}

// Ledger is the stock ledger service
type Ledger struct {
	store  Store
	strict bool
	obs    Observer
	now    func() time.Time
}

// New creates a Ledger over store
func New(store Store, opts Options) *Ledger {
	l := &Ledger{
		store:  store,
		strict: opts.StrictSigns,
		obs:    opts.Observer,
		now:    opts.Clock,
	}
	if l.obs == nil {
		l.obs = nopObserver{}
	}
	if l.now == nil {
		l.now = func() time.Time { return time.Now().UTC() }
	}
	return l
}

// InitialEvent builds the INITIAL event a product is created with. Fractional
// stock is floored and zero is allowed. Callers reject stock that fails
// ValidInitialStock first; anything else normalizes to zero.
func (l *Ledger) InitialEvent(productID uuid.UUID, stock float64) *domain.StockEvent {
	reason := "Initial stock"
	return newEvent(productID, domain.StockEventInitial, NormalizeCount(stock), &reason, l.now())
}

// CurrentStock folds every event recorded for the product
func (l *Ledger) CurrentStock(ctx context.Context, productID uuid.UUID) (int64, error) {
	events, err := l.store.ListEvents(ctx, productID)
	if err != nil {
		return 0, err
	}
	return Fold(events), nil
}

// History returns the product's full event log with summary figures
func (l *Ledger) History(ctx context.Context, productID uuid.UUID) (*domain.StockHistory, error) {
	events, err := l.store.ListEvents(ctx, productID)
	if err != nil {
		return nil, err
	}
	return Summarize(productID, events), nil
}

// RecordEvent appends an event with a caller-supplied signed quantity. The
// quantity is floored before storage.
func (l *Ledger) RecordEvent(ctx context.Context, productID uuid.UUID, t domain.StockEventType, quantity float64, reason *string) (*domain.StockEvent, error) {
	if !t.Valid() {
		return nil, ErrInvalidEventType
	}
	qty, ok := NormalizeDelta(quantity)
	if !ok {
		return nil, ErrInvalidQuantity
	}

	if !l.strict {
		return l.appendBounded(ctx, productID, t, qty, reason)
	}

	if t != domain.StockEventReservation {
		if qty < 0 {
			return nil, ErrSignMismatch
		}
		return l.appendBounded(ctx, productID, t, qty, reason)
	}

	if qty > 0 {
		return nil, ErrSignMismatch
	}
	event, err := l.appendBounded(ctx, productID, t, qty, reason)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			l.obs.ReservationAttempted(false)
		}
		return nil, err
	}
	l.obs.ReservationAttempted(true)
	return event, nil
}

// Reserve deducts quantity from the product's stock if enough is available.
// A false result with a nil error means the reservation was rejected and
// nothing was written.
func (l *Ledger) Reserve(ctx context.Context, productID uuid.UUID, quantity float64) (bool, error) {
	qty := NormalizeCount(quantity)
	if qty == 0 {
		return false, nil
	}

	reserved := false
	err := l.store.WithinProductLock(ctx, productID, func(s Store) error {
		events, err := s.ListEvents(ctx, productID)
		if err != nil {
			return err
		}
		if Fold(events) < qty {
			return nil
		}
		reason := fmt.Sprintf("Reservation for %d units", qty)
		if _, err := l.append(ctx, s, productID, domain.StockEventReservation, -qty, &reason); err != nil {
			return err
		}
		reserved = true
		return nil
	})
	if err != nil {
		return false, err
	}

	l.obs.ReservationAttempted(reserved)
	return reserved, nil
}

// Restock adds quantity to the product's stock. It returns false without
// writing anything when quantity normalizes to zero.
func (l *Ledger) Restock(ctx context.Context, productID uuid.UUID, quantity float64, reason *string) (bool, error) {
	qty := NormalizeCount(quantity)
	if qty == 0 {
		return false, nil
	}
	if reason == nil || *reason == "" {
		r := "Manual restock"
		reason = &r
	}
	if _, err := l.appendBounded(ctx, productID, domain.StockEventRestock, qty, reason); err != nil {
		return false, err
	}
	return true, nil
}

// CancelReservation gives back previously reserved stock
func (l *Ledger) CancelReservation(ctx context.Context, productID uuid.UUID, quantity float64) (bool, error) {
	qty := NormalizeCount(quantity)
	if qty == 0 {
		return false, nil
	}
	reason := fmt.Sprintf("Cancellation for %d units", qty)
	if _, err := l.appendBounded(ctx, productID, domain.StockEventCancellation, qty, &reason); err != nil {
		return false, err
	}
	return true, nil
}

// appendBounded writes one event under the product lock if the resulting stock
// stays within [-MaxStock, MaxStock]. With strict signs a decrease may not take
// stock below zero.
func (l *Ledger) appendBounded(ctx context.Context, productID uuid.UUID, t domain.StockEventType, qty int64, reason *string) (*domain.StockEvent, error) {
	var event *domain.StockEvent
	err := l.store.WithinProductLock(ctx, productID, func(s Store) error {
		events, err := s.ListEvents(ctx, productID)
		if err != nil {
			return err
		}
		next := Fold(events) + qty
		switch {
		case next > MaxStock:
			return ErrStockLimit
		case l.strict && qty < 0 && next < 0:
			return ErrInsufficientStock
		case next < -MaxStock:
			return ErrStockLimit
		}
		event, err = l.append(ctx, s, productID, t, qty, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (l *Ledger) append(ctx context.Context, s Store, productID uuid.UUID, t domain.StockEventType, qty int64, reason *string) (*domain.StockEvent, error) {
	event := newEvent(productID, t, qty, reason, l.now())
	if err := s.AppendEvent(ctx, event); err != nil {
		return nil, err
	}
	l.obs.EventRecorded(t)
	return event, nil
}
