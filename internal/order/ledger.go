package order

import (
	"context"
	"errors"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrIllegalTransition means the requested status change is not allowed
	// from the order's current status.
	ErrIllegalTransition = errors.New("illegal transition of order status")
)

// Ledger stores orders. UpdateStatus enforces the status state machine
// atomically, so a checkout racing a webhook cannot corrupt an order.
type Ledger interface {
	Insert(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByBuyer(ctx context.Context, buyerID string) ([]Order, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*Order, error)
	UpdateStatus(ctx context.Context, orderID string, status Status) error
}
