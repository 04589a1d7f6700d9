package transport

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateUserRequest represents the user creation payload
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Name  string `json:"name" validate:"required,max=255"`
	Role  string `json:"role" validate:"required,oneof=BUYER SELLER"`
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", h.CreateUser)
		r.Get("/", h.ListUsers)
		r.Get("/{userID}", h.GetUser)
	})
}

// CreateUser handles buyer and seller account creation
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	user, err := h.userService.CreateUser(r.Context(), req.Email, req.Name, domain.UserRole(req.Role))
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to create user", err)
		return
	}

	h.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, user)
}

// GetUser handles fetching one user
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to get user", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}

// ListUsers handles the paginated user listing, optionally filtered by role
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var role *domain.UserRole
	if raw := r.URL.Query().Get("role"); raw != "" {
		rl := domain.UserRole(raw)
		if rl != domain.RoleBuyer && rl != domain.RoleSeller {
			middleware.RespondWithError(w, http.StatusBadRequest, service.ErrInvalidRole.Error())
			return
		}
		role = &rl
	}

	page, limit := parsePagination(r)
	users, total, err := h.userService.ListUsers(r.Context(), role, page, limit)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to list users", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newPaginatedResponse(users, page, limit, total))
}
