package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var ErrInvalidRole = errors.New("role must be BUYER or SELLER")

// UserService defines the interface for user business logic
type UserService interface {
	CreateUser(ctx context.Context, email, name string, role domain.UserRole) (*domain.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ListUsers(ctx context.Context, role *domain.UserRole, page, pageSize int) ([]*domain.User, int, error)
}

type userService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new instance of UserService
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// CreateUser registers a buyer or seller account
func (s *userService) CreateUser(ctx context.Context, email, name string, role domain.UserRole) (*domain.User, error) {
	if role != domain.RoleBuyer && role != domain.RoleSeller {
		return nil, ErrInvalidRole
	}
	email = strings.ToLower(strings.TrimSpace(email))

	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, repository.ErrUserAlreadyExists
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, role *domain.UserRole, page, pageSize int) ([]*domain.User, int, error) {
	users, total, err := s.userRepo.List(ctx, role, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}
