package transport

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutRequest turns a user's cart into an order
type CheckoutRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// PayRequest settles an order with a payment method label
type PayRequest struct {
	Method string `json:"method" validate:"required,oneof=BALANCE BANK_TRANSFER CREDIT_CARD"`
}

// OrderHandler handles HTTP requests for checkout, orders and payment
type OrderHandler struct {
	orderService   service.OrderService
	paymentService service.PaymentService
	logger         *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, paymentService service.PaymentService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		paymentService: paymentService,
		logger:         logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.Checkout)
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
		r.Post("/{orderID}/cancel", h.CancelOrder)
		r.Post("/{orderID}/pay", h.Pay)
	})
}

// Checkout handles converting the cart into an order on the payment page
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	order, err := h.orderService.Checkout(r.Context(), uuid.MustParse(req.UserID))
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Checkout failed", err)
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", order.UserID.String()),
		zap.Int64("total_amount", order.TotalAmount),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListOrders handles the paginated order history of one user
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUUID(w, r, "user_id")
	if !ok {
		return
	}
	if userID == nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	page, limit := parsePagination(r)
	orders, total, err := h.orderService.ListOrders(r.Context(), *userID, page, limit)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to list orders", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newPaginatedResponse(orders, page, limit, total))
}

// GetOrder handles fetching one order with its items
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to get order", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// CancelOrder handles abandoning an unpaid order
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orderService.CancelOrder(r.Context(), orderID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to cancel order", err)
		return
	}

	h.logger.Info("Order cancelled", zap.String("order_id", order.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Pay handles settling an order. A declined balance payment still answers
// 200 with the order in PAYMENT_FAILED.
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	var req PayRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	order, err := h.paymentService.Pay(r.Context(), orderID, domain.PaymentMethod(req.Method))
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Payment failed", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
