package server

import (
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/ledger"
	"storefront/internal/metrics"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	db      database.Service
	redis   *redis.Client
	metrics *metrics.Metrics
}

// NewServer wires repositories, services and handlers onto a chi router.
// redisClient may be nil, in which case rate limiting is off.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) (*Server, error) {
	m, err := metrics.New("storefront", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger, "/health", cfg.Metrics.Path))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, !cfg.IsProduction()))
	if cfg.Metrics.Enabled {
		router.Use(m.Middleware)
	}
	if cfg.RateLimit.Enabled && redisClient != nil {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "storefront:ratelimit",
			MutatingOnly:      true,
		}, logger))
	}

	router.Get("/health", healthHandler(db))
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, m.Handler())
	}

	sqlDB := db.DB()

	// Initialize repositories
	userRepo := repository.NewUserRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	cartRepo := repository.NewCartRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)
	balanceRepo := repository.NewBalanceRepository(sqlDB)
	analyticsRepo := repository.NewAnalyticsRepository(sqlDB)
	uow := repository.NewUnitOfWork(sqlDB)

	stock := ledger.New(repository.NewStockEventRepository(sqlDB), ledger.Options{
		StrictSigns: cfg.Ledger.StrictSigns,
		Observer:    m,
	})

	// Initialize services
	userService := service.NewUserService(userRepo)
	productService := service.NewProductService(productRepo, userRepo, stock)
	cartService := service.NewCartService(cartRepo, stock)
	orderService := service.NewOrderService(cartRepo, orderRepo, uow, stock, logger)
	paymentService := service.NewPaymentService(orderRepo, uow, stock, logger)
	balanceService := service.NewBalanceService(balanceRepo, uow)
	analyticsService := service.NewAnalyticsService(analyticsRepo, orderRepo)

	// Register routes
	transport.NewUserHandler(userService, logger).RegisterRoutes(router)
	transport.NewProductHandler(productService, stock, logger).RegisterRoutes(router)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router)
	transport.NewOrderHandler(orderService, paymentService, logger).RegisterRoutes(router)
	transport.NewBalanceHandler(balanceService, logger).RegisterRoutes(router)
	transport.NewAnalyticsHandler(analyticsService, logger).RegisterRoutes(router)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:  cfg,
		logger:  logger,
		db:      db,
		redis:   redisClient,
		metrics: m,
	}, nil
}

func healthHandler(db database.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := db.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
			"status":   health["status"],
			"database": health,
		})
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
