package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) List(ctx context.Context, role *domain.UserRole, page, pageSize int) ([]*domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*domain.User
	for _, user := range m.users {
		if role == nil || user.Role == *role {
			matched = append(matched, user)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Email < matched[j].Email })

	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

// fakeProductService keeps products in memory and derives stock from the
// ledger it shares with the handler
type fakeProductService struct {
	ledger   *ledger.Ledger
	store    *ledger.MemoryStore
	products map[uuid.UUID]*domain.Product
}

func newFakeProductService() *fakeProductService {
	store := ledger.NewMemoryStore()
	return &fakeProductService{
		ledger:   ledger.New(store, ledger.Options{StrictSigns: true}),
		store:    store,
		products: make(map[uuid.UUID]*domain.Product),
	}
}

func (f *fakeProductService) add(name string, stock float64) *domain.Product {
	now := time.Now().UTC()
	p := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     1000,
		SellerID:  uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.products[p.ID] = p
	f.store.AddProduct(p.ID)
	_ = f.store.AppendEvent(context.Background(), f.ledger.InitialEvent(p.ID, stock))
	return p
}

func (f *fakeProductService) withStock(ctx context.Context, p *domain.Product) (*domain.ProductWithStock, error) {
	stock, err := f.ledger.CurrentStock(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &domain.ProductWithStock{Product: *p, Stock: stock}, nil
}

func (f *fakeProductService) CreateProduct(ctx context.Context, input service.CreateProductInput) (*domain.ProductWithStock, error) {
	if input.Price < 0 {
		return nil, service.ErrInvalidPrice
	}
	if !ledger.ValidInitialStock(input.InitialStock) {
		return nil, service.ErrInvalidInitialStock
	}
	p := f.add(input.Name, input.InitialStock)
	p.Description = input.Description
	p.Price = int64(input.Price)
	p.SellerID = input.SellerID
	return f.withStock(ctx, p)
}

func (f *fakeProductService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductWithStock, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return f.withStock(ctx, p)
}

func (f *fakeProductService) ListProducts(ctx context.Context, sellerID *uuid.UUID, page, pageSize int) ([]*domain.ProductWithStock, int, error) {
	var out []*domain.ProductWithStock
	for _, p := range f.products {
		if sellerID != nil && p.SellerID != *sellerID {
			continue
		}
		pw, err := f.withStock(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, pw)
	}
	return out, len(out), nil
}

func (f *fakeProductService) UpdateProduct(ctx context.Context, id uuid.UUID, input service.UpdateProductInput) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Price != nil {
		p.Price = int64(*input.Price)
	}
	return p, nil
}

func (f *fakeProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(f.products, id)
	f.store.RemoveProduct(id)
	return nil
}

func (f *fakeProductService) StockSummary(ctx context.Context, id uuid.UUID) (*service.StockSummary, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	history, err := f.ledger.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return &service.StockSummary{
		ProductID:    p.ID,
		ProductName:  p.Name,
		CurrentStock: history.CurrentStock,
		TotalEvents:  history.TotalEvents,
		LastUpdated:  *history.LastUpdated,
	}, nil
}

// stubCartService answers every call with the configured cart or error
type stubCartService struct {
	cart      *domain.Cart
	validated *domain.ValidatedCart
	err       error
	lastQty   float64
}

func (s *stubCartService) result() (*domain.Cart, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return s.result()
}

func (s *stubCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity float64) (*domain.Cart, error) {
	s.lastQty = quantity
	return s.result()
}

func (s *stubCartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity float64) (*domain.Cart, error) {
	s.lastQty = quantity
	return s.result()
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error) {
	return s.result()
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return s.result()
}

func (s *stubCartService) Validate(ctx context.Context, userID uuid.UUID) (*domain.ValidatedCart, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.validated, nil
}

type stubOrderService struct {
	order  *domain.Order
	orders []*domain.Order
	err    error
}

func (s *stubOrderService) Checkout(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.orders, len(s.orders), nil
}

func (s *stubOrderService) CancelOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

type stubPaymentService struct {
	order      *domain.Order
	err        error
	lastMethod domain.PaymentMethod
}

func (s *stubPaymentService) Pay(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod) (*domain.Order, error) {
	s.lastMethod = method
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

type stubBalanceService struct {
	info       *domain.BalanceInfo
	err        error
	lastAmount float64
}

func (s *stubBalanceService) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.BalanceInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

func (s *stubBalanceService) Deposit(ctx context.Context, userID uuid.UUID, amount float64) (*domain.BalanceInfo, error) {
	s.lastAmount = amount
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

func (s *stubBalanceService) Withdraw(ctx context.Context, userID uuid.UUID, amount float64) (*domain.BalanceInfo, error) {
	s.lastAmount = amount
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

type stubAnalyticsService struct {
	stats        *domain.SalesStatistics
	err          error
	lastSellerID *uuid.UUID
}

func (s *stubAnalyticsService) SalesStatistics(ctx context.Context, sellerID *uuid.UUID) (*domain.SalesStatistics, error) {
	s.lastSellerID = sellerID
	if s.err != nil {
		return nil, s.err
	}
	return s.stats, nil
}

type routeRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// newTestRouter mounts the handlers on a fresh chi router so URL params resolve
func newTestRouter(handlers ...routeRegistrar) http.Handler {
	r := chi.NewRouter()
	for _, h := range handlers {
		h.RegisterRoutes(r)
	}
	return r
}

// doJSON sends body (marshalled unless already a string) and returns the recorder
func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func jsonReader(v interface{}) io.Reader {
	raw, _ := json.Marshal(v)
	return bytes.NewReader(raw)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

// errorEnvelope mirrors the error response body
type errorEnvelope struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}
