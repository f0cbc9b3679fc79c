package catalog

import (
	"context"
	"errors"
)

// Common errors returned by the store
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Store defines read access to the catalog plus the atomic stock adjustment
// used by checkout. AdjustStock with a negative delta is a reservation and
// must fail with ErrInsufficientStock rather than let stock go negative.
type Store interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)

	ListProducts(ctx context.Context, q ListQuery) (*Page, error)

	// AdjustStock atomically applies delta to the product's stock.
	// The resulting stock is never allowed below zero.
	AdjustStock(ctx context.Context, id int64, delta int) error

	// SetStock sets the absolute stock level (seeding and management).
	SetStock(ctx context.Context, id int64, quantity int) error
}
