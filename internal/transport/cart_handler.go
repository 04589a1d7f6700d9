package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddCartItemRequest adds quantity of a product to the cart
type AddCartItemRequest struct {
	ProductID string   `json:"product_id" validate:"required,uuid"`
	Quantity  *float64 `json:"quantity" validate:"required,gt=0"`
}

// UpdateCartItemRequest sets a line's quantity. Zero removes the line.
type UpdateCartItemRequest struct {
	Quantity *float64 `json:"quantity" validate:"required,gte=0"`
}

// CartHandler handles HTTP requests for shopping carts
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/carts/{userID}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Get("/validate", h.ValidateCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productID}", h.UpdateItem)
		r.Delete("/items/{productID}", h.RemoveItem)
	})
}

// GetCart handles fetching the user's cart, creating it on first access
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to get cart", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// AddItem handles adding a product to the cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	var req AddCartItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), userID, uuid.MustParse(req.ProductID), *req.Quantity)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to add cart item", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// UpdateItem handles setting a line's quantity
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	cart, err := h.cartService.UpdateItem(r.Context(), userID, productID, *req.Quantity)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to update cart item", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// RemoveItem handles dropping a line from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	productID, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to remove cart item", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// ClearCart handles emptying the cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	cart, err := h.cartService.Clear(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to clear cart", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// ValidateCart handles checking every line against current stock. All
// problems are reported together.
func (h *CartHandler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	validated, err := h.cartService.Validate(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to validate cart", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, validated)
}
