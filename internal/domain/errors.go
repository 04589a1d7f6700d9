package domain

import "errors"

// Errors shared between the ledger and its persistence implementations
var (
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
)
