package ledger

import (
	"math"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

// MaxQuantity is the largest magnitude a single event may carry. Every integer
// up to it is exactly representable as a float64.
const MaxQuantity = 1 << 53

// MaxStock bounds the stock of a single product. Appends that would leave the
// fold outside [-MaxStock, MaxStock] are refused.
const MaxStock = 1 << 53

// Fold sums the quantities of events. The type tag is never consulted. The sum
// saturates at the int64 limits instead of wrapping.
func Fold(events []domain.StockEvent) int64 {
	var total int64
	for _, e := range events {
		switch {
		case e.Quantity > 0 && total > math.MaxInt64-e.Quantity:
			total = math.MaxInt64
		case e.Quantity < 0 && total < math.MinInt64-e.Quantity:
			total = math.MinInt64
		default:
			total += e.Quantity
		}
	}
	return total
}

// ValidInitialStock reports whether q can seed a product: finite, not
// negative and at most MaxQuantity. Fractions are floored later.
func ValidInitialStock(q float64) bool {
	return !math.IsNaN(q) && !math.IsInf(q, 0) && q >= 0 && math.Floor(q) <= MaxQuantity
}

// NormalizeCount floors q and clamps it at zero. NaN, infinities and values
// above MaxQuantity normalize to zero so callers fail closed.
func NormalizeCount(q float64) int64 {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	f := math.Floor(q)
	if f <= 0 || f > MaxQuantity {
		return 0
	}
	return int64(f)
}

// NormalizeDelta floors a signed quantity. ok is false when the result is zero,
// not finite or out of range.
func NormalizeDelta(q float64) (delta int64, ok bool) {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0, false
	}
	f := math.Floor(q)
	if f == 0 || math.Abs(f) > MaxQuantity {
		return 0, false
	}
	return int64(f), true
}

// Summarize builds the history view of an ordered event slice
func Summarize(productID uuid.UUID, events []domain.StockEvent) *domain.StockHistory {
	h := &domain.StockHistory{
		ProductID:    productID,
		CurrentStock: Fold(events),
		TotalEvents:  len(events),
		EventsByType: make(map[domain.StockEventType]int),
		Events:       events,
	}
	if h.Events == nil {
		h.Events = []domain.StockEvent{}
	}
	for _, e := range events {
		h.EventsByType[e.Type]++
	}
	if n := len(events); n > 0 {
		last := events[n-1].CreatedAt
		h.LastUpdated = &last
	}
	return h
}

func newEvent(productID uuid.UUID, t domain.StockEventType, qty int64, reason *string, now time.Time) *domain.StockEvent {
	return &domain.StockEvent{
		ID:        uuid.New(),
		ProductID: productID,
		Type:      t,
		Quantity:  qty,
		Reason:    reason,
		CreatedAt: now,
	}
}
