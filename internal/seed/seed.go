// Package seed loads a small demo catalog through the service layer so every
// order, reservation and balance movement goes through the same rules as the API.
package seed

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Services are the services the seed drives
type Services struct {
	Users    service.UserService
	Products service.ProductService
	Carts    service.CartService
	Orders   service.OrderService
	Payments service.PaymentService
	Balances service.BalanceService
}

// NewServices builds Services over a PostgreSQL pool
func NewServices(db *sql.DB, stock *ledger.Ledger, logger *zap.Logger) Services {
	userRepo := repository.NewUserRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	uow := repository.NewUnitOfWork(db)

	return Services{
		Users:    service.NewUserService(userRepo),
		Products: service.NewProductService(repository.NewProductRepository(db), userRepo, stock),
		Carts:    service.NewCartService(cartRepo, stock),
		Orders:   service.NewOrderService(cartRepo, orderRepo, uow, stock, logger),
		Payments: service.NewPaymentService(orderRepo, uow, stock, logger),
		Balances: service.NewBalanceService(repository.NewBalanceRepository(db), uow),
	}
}

// Summary reports what was loaded
type Summary struct {
	Sellers  []*domain.User
	Buyers   []*domain.User
	Products []*domain.ProductWithStock
	Orders   []*domain.Order
}

type productSpec struct {
	name        string
	description string
	price       float64
	stock       float64
}

var catalog = [][]productSpec{
	{
		{"Wireless Mouse", "Ergonomic wireless mouse with USB receiver", 2500, 50},
		{"Mechanical Keyboard", "RGB mechanical keyboard with blue switches", 8900, 30},
		{"USB-C Cable", "2m braided USB-C charging cable", 1200, 100},
		{"Laptop Stand", "Aluminum adjustable laptop stand", 4500, 25},
	},
	{
		{"Cotton T-Shirt", "Premium cotton t-shirt, available in multiple colors", 1999, 80},
		{"Denim Jeans", "Classic fit denim jeans", 5999, 40},
		{"Sneakers", "Comfortable everyday sneakers", 7999, 35},
	},
}

// Reset removes every row the seed creates
func Reset(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE balance_events, order_items, orders, cart_items, carts,
			stock_events, products, users CASCADE`)
	if err != nil {
		return fmt.Errorf("failed to reset data: %w", err)
	}
	return nil
}

// Run loads two sellers with seven products, two buyers with balances, one
// paid order per buyer and an open cart per buyer
func Run(ctx context.Context, svc Services, logger *zap.Logger) (*Summary, error) {
	sum := &Summary{}

	sellers := []struct{ email, name string }{
		{"seller1@example.com", "Tech Store"},
		{"seller2@example.com", "Fashion Boutique"},
	}
	for _, s := range sellers {
		u, err := svc.Users.CreateUser(ctx, s.email, s.name, domain.RoleSeller)
		if err != nil {
			return nil, fmt.Errorf("failed to create seller %s: %w", s.email, err)
		}
		sum.Sellers = append(sum.Sellers, u)
	}

	buyers := []struct{ email, name string }{
		{"buyer1@example.com", "John Doe"},
		{"buyer2@example.com", "Jane Smith"},
	}
	for _, b := range buyers {
		u, err := svc.Users.CreateUser(ctx, b.email, b.name, domain.RoleBuyer)
		if err != nil {
			return nil, fmt.Errorf("failed to create buyer %s: %w", b.email, err)
		}
		sum.Buyers = append(sum.Buyers, u)
	}
	logger.Info("Seeded users", zap.Int("sellers", len(sum.Sellers)), zap.Int("buyers", len(sum.Buyers)))

	products := make([][]*domain.ProductWithStock, len(catalog))
	for i, specs := range catalog {
		created, err := createProducts(ctx, svc.Products, sum.Sellers[i].ID, specs)
		if err != nil {
			return nil, err
		}
		products[i] = created
		sum.Products = append(sum.Products, created...)
	}
	logger.Info("Seeded products", zap.Int("count", len(sum.Products)))

	mouse, keyboard, cable, stand := products[0][0], products[0][1], products[0][2], products[0][3]
	tshirt, sneakers := products[1][0], products[1][2]
	buyer1, buyer2 := sum.Buyers[0], sum.Buyers[1]

	if _, err := svc.Balances.Deposit(ctx, buyer1.ID, 50000); err != nil {
		return nil, fmt.Errorf("failed to deposit for %s: %w", buyer1.Email, err)
	}
	if _, err := svc.Balances.Deposit(ctx, buyer2.ID, 30000); err != nil {
		return nil, fmt.Errorf("failed to deposit for %s: %w", buyer2.Email, err)
	}

	paid := []struct {
		buyer  *domain.User
		lines  []cartLine
		method domain.PaymentMethod
	}{
		{buyer1, []cartLine{{cable.ID, 5}, {stand.ID, 2}}, domain.PaymentBankTransfer},
		{buyer2, []cartLine{{tshirt.ID, 3}, {sneakers.ID, 1}}, domain.PaymentBalance},
	}
	for _, p := range paid {
		order, err := placePaidOrder(ctx, svc, p.buyer.ID, p.lines, p.method)
		if err != nil {
			return nil, fmt.Errorf("failed to place order for %s: %w", p.buyer.Email, err)
		}
		sum.Orders = append(sum.Orders, order)
	}
	logger.Info("Seeded orders", zap.Int("count", len(sum.Orders)))

	if err := fillCart(ctx, svc.Carts, buyer1.ID, []cartLine{{mouse.ID, 2}, {keyboard.ID, 1}}); err != nil {
		return nil, err
	}
	if err := fillCart(ctx, svc.Carts, buyer2.ID, []cartLine{{tshirt.ID, 3}}); err != nil {
		return nil, err
	}

	return sum, nil
}

// createProducts creates one seller's products concurrently, keeping catalog order
func createProducts(ctx context.Context, products service.ProductService, sellerID uuid.UUID, specs []productSpec) ([]*domain.ProductWithStock, error) {
	created := make([]*domain.ProductWithStock, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			p, err := products.CreateProduct(gctx, service.CreateProductInput{
				Name:         spec.name,
				Description:  spec.description,
				Price:        spec.price,
				SellerID:     sellerID,
				InitialStock: spec.stock,
			})
			if err != nil {
				return fmt.Errorf("failed to create product %s: %w", spec.name, err)
			}
			created[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return created, nil
}

type cartLine struct {
	productID uuid.UUID
	quantity  float64
}

func fillCart(ctx context.Context, carts service.CartService, userID uuid.UUID, lines []cartLine) error {
	for _, l := range lines {
		if _, err := carts.AddItem(ctx, userID, l.productID, l.quantity); err != nil {
			return fmt.Errorf("failed to add cart item: %w", err)
		}
	}
	return nil
}

func placePaidOrder(ctx context.Context, svc Services, userID uuid.UUID, lines []cartLine, method domain.PaymentMethod) (*domain.Order, error) {
	if err := fillCart(ctx, svc.Carts, userID, lines); err != nil {
		return nil, err
	}
	order, err := svc.Orders.Checkout(ctx, userID)
	if err != nil {
		return nil, err
	}
	order, err = svc.Payments.Pay(ctx, order.ID, method)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderPaymentSuccess {
		return nil, fmt.Errorf("order %s ended in %s", order.ID, order.Status)
	}
	return order, nil
}
