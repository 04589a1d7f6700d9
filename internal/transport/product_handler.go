package transport

import (
	"context"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockLedger is the part of the stock ledger the HTTP layer drives
type StockLedger interface {
	CurrentStock(ctx context.Context, productID uuid.UUID) (int64, error)
	History(ctx context.Context, productID uuid.UUID) (*domain.StockHistory, error)
	RecordEvent(ctx context.Context, productID uuid.UUID, t domain.StockEventType, quantity float64, reason *string) (*domain.StockEvent, error)
	Reserve(ctx context.Context, productID uuid.UUID, quantity float64) (bool, error)
	Restock(ctx context.Context, productID uuid.UUID, quantity float64, reason *string) (bool, error)
	CancelReservation(ctx context.Context, productID uuid.UUID, quantity float64) (bool, error)
}

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	Name         string   `json:"name" validate:"required,max=255"`
	Description  string   `json:"description" validate:"max=5000"`
	Price        *float64 `json:"price" validate:"required,gte=0"`
	SellerID     string   `json:"seller_id" validate:"required,uuid"`
	InitialStock float64  `json:"initial_stock" validate:"gte=0"`
}

// UpdateProductRequest represents a partial product update. Stock is not
// updatable here.
type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
}

// StockEventRequest appends an event with a caller-supplied signed quantity
type StockEventRequest struct {
	Type     string   `json:"type" validate:"required,oneof=RESERVATION CANCELLATION RESTOCK"`
	Quantity *float64 `json:"quantity" validate:"required,ne=0"`
	Reason   *string  `json:"reason" validate:"omitempty,max=500"`
}

// QuantityRequest carries a positive quantity for reserve and cancel
type QuantityRequest struct {
	Quantity *float64 `json:"quantity" validate:"required,gt=0"`
}

// RestockRequest carries a restock quantity and an optional reason
type RestockRequest struct {
	Quantity *float64 `json:"quantity" validate:"required,gt=0"`
	Reason   *string  `json:"reason" validate:"omitempty,max=500"`
}

// StockEventResponse is returned after an event is appended
type StockEventResponse struct {
	Success      bool               `json:"success"`
	Event        *domain.StockEvent `json:"event"`
	CurrentStock int64              `json:"current_stock"`
}

// StockChangeResponse is returned by reserve, restock and cancel-reservation
type StockChangeResponse struct {
	Success      bool  `json:"success"`
	CurrentStock int64 `json:"current_stock"`
}

// ProductHandler handles HTTP requests for products and their stock
type ProductHandler struct {
	productService service.ProductService
	ledger         StockLedger
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, l StockLedger, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		ledger:         l,
		logger:         logger,
	}
}

// RegisterRoutes registers all product and stock routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)

		r.Route("/{productID}", func(r chi.Router) {
			r.Get("/", h.GetProduct)
			r.Patch("/", h.UpdateProduct)
			r.Delete("/", h.DeleteProduct)

			r.Get("/stock", h.GetStock)
			r.Get("/stock-events", h.ListStockEvents)
			r.Post("/stock-events", h.RecordStockEvent)
			r.Post("/reserve", h.Reserve)
			r.Post("/restock", h.Restock)
			r.Post("/cancel-reservation", h.CancelReservation)
		})
	})
}

// CreateProduct handles product creation with its initial stock
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), service.CreateProductInput{
		Name:         req.Name,
		Description:  req.Description,
		Price:        *req.Price,
		SellerID:     uuid.MustParse(req.SellerID),
		InitialStock: req.InitialStock,
	})
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to create product", err)
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("seller_id", product.SellerID.String()),
		zap.Int64("initial_stock", product.Stock),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// ListProducts handles the paginated catalog, newest first
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := queryUUID(w, r, "seller_id")
	if !ok {
		return
	}

	page, limit := parsePagination(r)
	products, total, err := h.productService.ListProducts(r.Context(), sellerID, page, limit)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to list products", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newPaginatedResponse(products, page, limit, total))
}

// GetProduct handles fetching one product with its seller and stock
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to get product", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// UpdateProduct handles partial updates of name, description and price
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), productID, service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to update product", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct handles product removal
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(r.Context(), productID); err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to delete product", err)
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", productID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetStock handles the current stock summary
func (h *ProductHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	summary, err := h.productService.StockSummary(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to get stock", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// ListStockEvents handles the full ordered event history
func (h *ProductHandler) ListStockEvents(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	history, err := h.ledger.History(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to get stock events", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, history)
}

// RecordStockEvent handles appending an externally supplied event
func (h *ProductHandler) RecordStockEvent(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	var req StockEventRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	event, err := h.ledger.RecordEvent(r.Context(), productID, domain.StockEventType(req.Type), *req.Quantity, req.Reason)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to record stock event", err)
		return
	}

	current, err := h.ledger.CurrentStock(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to read stock", err)
		return
	}

	h.logger.Info("Stock event recorded",
		zap.String("product_id", productID.String()),
		zap.String("type", string(event.Type)),
		zap.Int64("quantity", event.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, StockEventResponse{
		Success:      true,
		Event:        event,
		CurrentStock: current,
	})
}

// Reserve handles a stock reservation. A rejected reservation is a 409.
func (h *ProductHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	var req QuantityRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	reserved, err := h.ledger.Reserve(r.Context(), productID, *req.Quantity)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to reserve stock", err)
		return
	}
	if !reserved {
		middleware.RespondWithError(w, http.StatusConflict, ledger.ErrInsufficientStock.Error())
		return
	}

	h.respondWithStock(w, r, productID)
}

// Restock handles adding stock
func (h *ProductHandler) Restock(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	var req RestockRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	added, err := h.ledger.Restock(r.Context(), productID, *req.Quantity, req.Reason)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to restock", err)
		return
	}
	if !added {
		middleware.RespondWithError(w, http.StatusBadRequest, ledger.ErrInvalidQuantity.Error())
		return
	}

	h.respondWithStock(w, r, productID)
}

// CancelReservation handles giving reserved stock back
func (h *ProductHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	var req QuantityRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	cancelled, err := h.ledger.CancelReservation(r.Context(), productID, *req.Quantity)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to cancel reservation", err)
		return
	}
	if !cancelled {
		middleware.RespondWithError(w, http.StatusBadRequest, ledger.ErrInvalidQuantity.Error())
		return
	}

	h.respondWithStock(w, r, productID)
}

func (h *ProductHandler) respondWithStock(w http.ResponseWriter, r *http.Request, productID uuid.UUID) {
	current, err := h.ledger.CurrentStock(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to read stock", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, StockChangeResponse{Success: true, CurrentStock: current})
}
