// Package profile is the boundary to the user-profile collaborator. Only the
// address save used by checkout is modeled; account management lives outside
// this service.
package profile

import (
	"context"
	"sync"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/order"
)

// AddressSaver persists a shipping address on a buyer's profile. Checkout
// calls it best-effort after the order is committed.
type AddressSaver interface {
	SaveAddress(ctx context.Context, userID string, addr order.Address) error
}

// MemoryAddressBook implements AddressSaver in memory.
type MemoryAddressBook struct {
	mu        sync.RWMutex
	addresses map[string]order.Address
}

func NewMemoryAddressBook() *MemoryAddressBook {
	return &MemoryAddressBook{addresses: make(map[string]order.Address)}
}

func (m *MemoryAddressBook) SaveAddress(_ context.Context, userID string, addr order.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses[userID] = addr
	return nil
}

// GetAddress returns the saved address, if any.
func (m *MemoryAddressBook) GetAddress(userID string) (order.Address, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	addr, ok := m.addresses[userID]
	return addr, ok
}
