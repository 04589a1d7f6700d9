package transport

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
)

// Pagination describes one page of a listing
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

func newPaginatedResponse(data interface{}, page, limit, total int) PaginatedResponse {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return PaginatedResponse{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// parsePagination reads page and limit from the query string. Missing or
// malformed values fall back to the defaults; limit is capped.
func parsePagination(r *http.Request) (page, limit int) {
	page, limit = 1, defaultPageSize
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// pathUUID parses a chi URL parameter, answering 400 when it is not a UUID
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return nil, false
	}
	return &id, true
}

// decodeRequest decodes and validates the JSON body into v, answering 400
// with the field errors when it fails
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
		return false
	}
	return true
}

// statusFor maps a service error to its HTTP status. Anything unrecognized is
// an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrCartInvalid),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrNotSeller),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidEventType),
		errors.Is(err, ledger.ErrSignMismatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, repository.ErrSellerNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrCartItemNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, ledger.ErrStockLimit),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, repository.ErrInvalidStatusTransition),
		errors.Is(err, repository.ErrProductHasOrders),
		errors.Is(err, repository.ErrUserAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondWithServiceError writes the error envelope for err. Internal errors
// are logged and answered with an opaque message.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg,
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		middleware.RespondWithError(w, status, "internal server error")
		return
	}

	var cartErr *service.CartValidationError
	if errors.As(err, &cartErr) {
		middleware.RespondWithErrorDetails(w, status, service.ErrCartInvalid.Error(), map[string]interface{}{
			"problems": cartErr.Problems,
		})
		return
	}

	logger.Debug(msg, zap.Error(err))
	middleware.RespondWithError(w, status, errorMessage(err))
}

// errorMessage picks the sentinel's text so wrapping context stays internal
func errorMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrProductNotFound,
		domain.ErrUserNotFound,
		repository.ErrSellerNotFound,
		repository.ErrCartNotFound,
		repository.ErrCartItemNotFound,
		repository.ErrOrderNotFound,
		repository.ErrInvalidStatusTransition,
		repository.ErrUserAlreadyExists,
		repository.ErrProductHasOrders,
		service.ErrInvalidInitialStock,
		ledger.ErrInsufficientStock,
		ledger.ErrStockLimit,
		ledger.ErrInvalidQuantity,
		ledger.ErrInvalidEventType,
		ledger.ErrSignMismatch,
		service.ErrInsufficientBalance,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
