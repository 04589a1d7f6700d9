package ledger

import (
	"context"
	"sync"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

type productLog struct {
	lock   sync.Mutex
	events []domain.StockEvent
}

// MemoryStore is an in-process Store. Each product carries its own mutex, so
// reservations on different products never contend.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*productLog
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[uuid.UUID]*productLog)}
}

// AddProduct registers a product so events can be appended for it
func (m *MemoryStore) AddProduct(productID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[productID]; !ok {
		m.products[productID] = &productLog{}
	}
}

// RemoveProduct drops a product together with its events
func (m *MemoryStore) RemoveProduct(productID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, productID)
}

func (m *MemoryStore) ListEvents(ctx context.Context, productID uuid.UUID) ([]domain.StockEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log, ok := m.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	out := make([]domain.StockEvent, len(log.events))
	copy(out, log.events)
	return out, nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, event *domain.StockEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.products[event.ProductID]
	if !ok {
		return domain.ErrProductNotFound
	}
	log.events = append(log.events, *event)
	return nil
}

func (m *MemoryStore) WithinProductLock(ctx context.Context, productID uuid.UUID, fn func(Store) error) error {
	m.mu.RLock()
	log, ok := m.products[productID]
	m.mu.RUnlock()
	if !ok {
		return domain.ErrProductNotFound
	}

	log.lock.Lock()
	defer log.lock.Unlock()
	return fn(m)
}
