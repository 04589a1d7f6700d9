package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AnalyticsHandler handles HTTP requests for sales statistics
type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
	logger           *zap.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(analyticsService service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// RegisterRoutes registers the analytics routes
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/analytics/sales", h.SalesStatistics)
}

// SalesStatistics handles the sales rollup, optionally for one seller
func (h *AnalyticsHandler) SalesStatistics(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := queryUUID(w, r, "seller_id")
	if !ok {
		return
	}

	stats, err := h.analyticsService.SalesStatistics(r.Context(), sellerID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to compute sales statistics", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, stats)
}
