package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AmountRequest carries a deposit or withdrawal amount
type AmountRequest struct {
	Amount *float64 `json:"amount" validate:"required,gt=0"`
}

// BalanceHandler handles HTTP requests for user balances
type BalanceHandler struct {
	balanceService service.BalanceService
	logger         *zap.Logger
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(balanceService service.BalanceService, logger *zap.Logger) *BalanceHandler {
	return &BalanceHandler{
		balanceService: balanceService,
		logger:         logger,
	}
}

// RegisterRoutes registers all balance routes
func (h *BalanceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/balances/{userID}", func(r chi.Router) {
		r.Get("/", h.GetBalance)
		r.Post("/deposit", h.Deposit)
		r.Post("/withdraw", h.Withdraw)
	})
}

// GetBalance handles fetching the folded balance with its history
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	info, err := h.balanceService.GetBalance(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to get balance", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, info)
}

// Deposit handles crediting a user's balance
func (h *BalanceHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	var req AmountRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	info, err := h.balanceService.Deposit(r.Context(), userID, *req.Amount)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Deposit failed", err)
		return
	}

	h.logger.Info("Balance deposited",
		zap.String("user_id", userID.String()),
		zap.Int64("balance", info.CurrentBalance),
	)
	middleware.RespondWithJSON(w, http.StatusOK, info)
}

// Withdraw handles debiting a user's balance. Overdrawing is a 409.
func (h *BalanceHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	var req AmountRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	info, err := h.balanceService.Withdraw(r.Context(), userID, *req.Amount)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Withdrawal failed", err)
		return
	}

	h.logger.Info("Balance withdrawn",
		zap.String("user_id", userID.String()),
		zap.Int64("balance", info.CurrentBalance),
	)
	middleware.RespondWithJSON(w, http.StatusOK, info)
}
