package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a product in the catalog. Stock is derived from the
// product's stock events and is never persisted on the product row.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       int64     `json:"price" db:"price"` // minor currency units
	SellerID    uuid.UUID `json:"seller_id" db:"seller_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProductWithStock is a product together with its folded stock level
type ProductWithStock struct {
	Product
	Stock  int64 `json:"stock"`
	Seller *User `json:"seller,omitempty"`
}

// ProductPatch carries a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *int64
}

// IsEmpty reports whether the patch changes nothing
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil
}
