package basket

import (
	"context"
	"errors"
)

var (
	ErrBasketNotFound = errors.New("basket not found")
	ErrItemNotFound   = errors.New("item not found in basket")
)

// Repository persists baskets keyed by buyer id. At most one basket exists
// per buyer id.
type Repository interface {
	GetBasket(ctx context.Context, buyerID string) (*Basket, error)
	UpsertBasket(ctx context.Context, b *Basket) error
	DeleteBasket(ctx context.Context, buyerID string) error
}
