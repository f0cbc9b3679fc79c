package order

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryLedger implements Ledger with in-memory storage. Status transitions
// are checked and applied under the same lock.
type MemoryLedger struct {
	mu     sync.RWMutex
	orders map[string]*Order // orderID -> order
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{orders: make(map[string]*Order)}
}

func (l *MemoryLedger) Insert(_ context.Context, o *Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	l.orders[o.ID] = copyOrder(o)
	return nil
}

func (l *MemoryLedger) FindByID(_ context.Context, id string) (*Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o, ok := l.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (l *MemoryLedger) FindByBuyer(_ context.Context, buyerID string) ([]Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Order, 0)
	for _, o := range l.orders {
		if o.BuyerID == buyerID {
			result = append(result, *copyOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (l *MemoryLedger) FindByPaymentIntentID(_ context.Context, intentID string) (*Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, o := range l.orders {
		if o.PaymentIntentID != "" && o.PaymentIntentID == intentID {
			return copyOrder(o), nil
		}
	}
	return nil, ErrOrderNotFound
}

func (l *MemoryLedger) UpdateStatus(_ context.Context, orderID string, status Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if !o.Status.CanTransitionTo(status) {
		return ErrIllegalTransition
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

func copyOrder(o *Order) *Order {
	cp := *o
	cp.Items = make([]Item, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}
