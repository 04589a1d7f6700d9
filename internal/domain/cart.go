package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart is a user's shopping cart. Each user owns at most one cart.
type Cart struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// CartItem is one product line in a cart
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CartID    uuid.UUID `json:"cart_id" db:"cart_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int64     `json:"quantity" db:"quantity"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ValidatedCart is a cart whose every line passed stock and quantity checks
type ValidatedCart struct {
	Items       []ValidatedCartItem `json:"items"`
	TotalAmount int64               `json:"total_amount"`
}

// ValidatedCartItem is a priced cart line with the stock it was checked against
type ValidatedCartItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int64     `json:"quantity"`
	Price          int64     `json:"price"`
	Subtotal       int64     `json:"subtotal"`
	AvailableStock int64     `json:"available_stock"`
}
