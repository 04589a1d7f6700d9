package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mock repositories for testing. Stock lives in a real ledger.MemoryStore so
// the services exercise the actual ledger.

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) List(ctx context.Context, role *domain.UserRole, page, pageSize int) ([]*domain.User, int, error) {
	users := []*domain.User{}
	for _, u := range m.users {
		if role == nil || u.Role == *role {
			users = append(users, u)
		}
	}
	return users, len(users), nil
}

func (m *mockUserRepository) add(name string, role domain.UserRole) *domain.User {
	user := &domain.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		Name:      name,
		Role:      role,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	m.users[user.Email] = user
	return user
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
	store    *ledger.MemoryStore
	users    *mockUserRepository
}

func newMockProductRepository(store *ledger.MemoryStore, users *mockUserRepository) *mockProductRepository {
	return &mockProductRepository{
		products: make(map[uuid.UUID]*domain.Product),
		store:    store,
		users:    users,
	}
}

func (m *mockProductRepository) CreateWithInitialStock(ctx context.Context, product *domain.Product, initial *domain.StockEvent) error {
	if _, err := m.users.FindByID(ctx, product.SellerID); err != nil {
		return repository.ErrSellerNotFound
	}
	m.products[product.ID] = product
	m.store.AddProduct(product.ID)
	if initial != nil {
		return m.store.AppendEvent(ctx, initial)
	}
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	return p, nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	m.store.RemoveProduct(id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProductRepository) FindWithStock(ctx context.Context, id uuid.UUID) (*domain.ProductWithStock, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	events, err := m.store.ListEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	seller, _ := m.users.FindByID(ctx, p.SellerID)
	return &domain.ProductWithStock{Product: *p, Stock: ledger.Fold(events), Seller: seller}, nil
}

func (m *mockProductRepository) List(ctx context.Context, sellerID *uuid.UUID, page, pageSize int) ([]*domain.ProductWithStock, int, error) {
	out := []*domain.ProductWithStock{}
	for id, p := range m.products {
		if sellerID != nil && p.SellerID != *sellerID {
			continue
		}
		pw, err := m.FindWithStock(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, pw)
	}
	return out, len(out), nil
}

func (m *mockProductRepository) add(t interface{ Fatalf(string, ...any) }, l *ledger.Ledger, sellerID uuid.UUID, name string, price int64, stock float64) *domain.Product {
	p := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     price,
		SellerID:  sellerID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := m.CreateWithInitialStock(context.Background(), p, l.InitialEvent(p.ID, stock)); err != nil {
		t.Fatalf("failed to add product: %v", err)
	}
	return p
}

type mockCartRepository struct {
	carts    map[uuid.UUID]*domain.Cart
	products *mockProductRepository
}

func newMockCartRepository(products *mockProductRepository) *mockCartRepository {
	return &mockCartRepository{carts: make(map[uuid.UUID]*domain.Cart), products: products}
}

func (m *mockCartRepository) byID(cartID uuid.UUID) *domain.Cart {
	for _, c := range m.carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}

func (m *mockCartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, ok := m.carts[userID]
	if !ok {
		cart = &domain.Cart{ID: uuid.New(), UserID: userID, Items: []domain.CartItem{}}
		m.carts[userID] = cart
	}
	out := *cart
	out.Items = make([]domain.CartItem, len(cart.Items))
	copy(out.Items, cart.Items)
	for i := range out.Items {
		if p, ok := m.products.products[out.Items[i].ProductID]; ok {
			product := *p
			out.Items[i].Product = &product
		}
	}
	return &out, nil
}

func (m *mockCartRepository) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int64) error {
	cart := m.byID(cartID)
	if cart == nil {
		return repository.ErrCartNotFound
	}
	if _, ok := m.products.products[productID]; !ok {
		return repository.ErrProductNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity += quantity
			return nil
		}
	}
	cart.Items = append(cart.Items, domain.CartItem{ID: uuid.New(), CartID: cartID, ProductID: productID, Quantity: quantity})
	return nil
}

func (m *mockCartRepository) SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return m.RemoveItem(ctx, cartID, productID)
	}
	cart := m.byID(cartID)
	if cart == nil {
		return repository.ErrCartNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = quantity
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	cart := m.byID(cartID)
	if cart == nil {
		return repository.ErrCartNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (m *mockCartRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	cart := m.byID(cartID)
	if cart == nil {
		return repository.ErrCartNotFound
	}
	cart.Items = []domain.CartItem{}
	return nil
}

type mockOrderRepository struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*domain.Order
	createErr error
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *order
	m.orders[order.ID] = &stored
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	out := *o
	return &out, nil
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (m *mockOrderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, method *domain.PaymentMethod, failureReason *string) (*domain.Order, error) {
	if !from.CanTransitionTo(to) {
		return nil, repository.ErrInvalidStatusTransition
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if o.Status != from {
		return nil, repository.ErrInvalidStatusTransition
	}
	o.Status = to
	if method != nil {
		mm := *method
		o.PaymentMethod = &mm
	}
	o.FailureReason = failureReason
	o.UpdatedAt = time.Now().UTC()
	out := *o
	return &out, nil
}

func (m *mockOrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[domain.OrderStatus]int{}
	for _, o := range m.orders {
		counts[o.Status]++
	}
	return counts, nil
}

type mockBalanceRepository struct {
	users  *mockUserRepository
	events map[uuid.UUID][]domain.BalanceEvent
}

func newMockBalanceRepository(users *mockUserRepository) *mockBalanceRepository {
	return &mockBalanceRepository{users: users, events: make(map[uuid.UUID][]domain.BalanceEvent)}
}

func (m *mockBalanceRepository) LockUser(ctx context.Context, userID uuid.UUID) error {
	_, err := m.users.FindByID(ctx, userID)
	return err
}

func (m *mockBalanceRepository) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if _, err := m.users.FindByID(ctx, userID); err != nil {
		return 0, err
	}
	var total int64
	for _, e := range m.events[userID] {
		total += e.Amount
	}
	return total, nil
}

func (m *mockBalanceRepository) ListEvents(ctx context.Context, userID uuid.UUID) ([]domain.BalanceEvent, error) {
	if _, err := m.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return append([]domain.BalanceEvent{}, m.events[userID]...), nil
}

func (m *mockBalanceRepository) Append(ctx context.Context, event *domain.BalanceEvent) error {
	if _, err := m.users.FindByID(ctx, event.UserID); err != nil {
		return err
	}
	m.events[event.UserID] = append(m.events[event.UserID], *event)
	return nil
}

// mockUnitOfWork serializes transactions with a mutex. It does not roll back.
type mockUnitOfWork struct {
	mu    sync.Mutex
	repos repository.TxRepositories
}

func (m *mockUnitOfWork) WithinTx(ctx context.Context, fn func(repos repository.TxRepositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.repos)
}

// fixture wires every mock around one in-memory ledger
type fixture struct {
	store    *ledger.MemoryStore
	ledger   *ledger.Ledger
	users    *mockUserRepository
	products *mockProductRepository
	carts    *mockCartRepository
	orders   *mockOrderRepository
	balances *mockBalanceRepository
	uow      *mockUnitOfWork
	logger   *zap.Logger
}

func newFixture() *fixture {
	f := &fixture{store: ledger.NewMemoryStore(), users: newMockUserRepository(), logger: zap.NewNop()}
	f.ledger = ledger.New(f.store, ledger.Options{StrictSigns: true})
	f.products = newMockProductRepository(f.store, f.users)
	f.carts = newMockCartRepository(f.products)
	f.orders = newMockOrderRepository()
	f.balances = newMockBalanceRepository(f.users)
	f.uow = &mockUnitOfWork{repos: repository.TxRepositories{
		Carts:    f.carts,
		Orders:   f.orders,
		Balances: f.balances,
	}}
	return f
}

func (f *fixture) cartService() CartService {
	return NewCartService(f.carts, f.ledger)
}

func (f *fixture) orderService() OrderService {
	return NewOrderService(f.carts, f.orders, f.uow, f.ledger, f.logger)
}

func (f *fixture) paymentService() PaymentService {
	return NewPaymentService(f.orders, f.uow, f.ledger, f.logger)
}

func (f *fixture) balanceService() BalanceService {
	return NewBalanceService(f.balances, f.uow)
}
