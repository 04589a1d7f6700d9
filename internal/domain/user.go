package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserRole distinguishes buyers from sellers
type UserRole string

const (
	RoleBuyer  UserRole = "BUYER"
	RoleSeller UserRole = "SELLER"
)

// User represents a buyer or seller account
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
