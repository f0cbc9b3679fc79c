package basket

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository implements Repository with in-memory storage.
type MemoryRepository struct {
	mu      sync.RWMutex
	baskets map[string]*Basket // buyerID -> basket
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{baskets: make(map[string]*Basket)}
}

func (m *MemoryRepository) GetBasket(_ context.Context, buyerID string) (*Basket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.baskets[buyerID]
	if !ok {
		return nil, ErrBasketNotFound
	}
	return copyBasket(b), nil
}

func (m *MemoryRepository) UpsertBasket(_ context.Context, b *Basket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	m.baskets[b.BuyerID] = copyBasket(b)
	return nil
}

func (m *MemoryRepository) DeleteBasket(_ context.Context, buyerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.baskets[buyerID]; !ok {
		return ErrBasketNotFound
	}
	delete(m.baskets, buyerID)
	return nil
}

func copyBasket(b *Basket) *Basket {
	cp := *b
	cp.Items = make([]BasketItem, len(b.Items))
	copy(cp.Items, b.Items)
	return &cp
}
