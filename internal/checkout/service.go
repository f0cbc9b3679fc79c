// Package checkout turns a basket into a durable order: it reserves stock,
// snapshots the purchased lines, persists the order and clears the basket.
package checkout

import (
	"context"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/basket"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/catalog"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/events"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/order"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/profile"
	"github.com/JorgeRiveraMancilla/go-store-api/pkg/keylock"
)

type Service struct {
	baskets     basket.Repository
	basketCache basket.Cache
	catalog     catalog.Store
	ledger      order.Ledger
	profiles    profile.AddressSaver
	events      events.Sink
	locks       *keylock.KeyLock
	atomic      AtomicReserver
}

// Reservation is one basket line's stock decrement.
type Reservation struct {
	ProductID int64
	Quantity  int
}

// AtomicReserver commits a checkout's stock decrements and the order insert
// as a single unit, so a process crash between reserving and persisting can
// never strand decremented stock without an order. Durable backends provide
// one; the memory backends fall back to in-process compensation.
type AtomicReserver interface {
	ReserveAndInsert(ctx context.Context, reservations []Reservation, o *order.Order) error
}

// NewService builds the orchestrator. locks must be the same instance the
// basket service uses, so a running checkout excludes concurrent basket
// mutations and checkouts for the same buyer.
func NewService(
	baskets basket.Repository,
	basketCache basket.Cache,
	cat catalog.Store,
	ledger order.Ledger,
	profiles profile.AddressSaver,
	sink events.Sink,
	locks *keylock.KeyLock,
) *Service {
	return &Service{
		baskets:     baskets,
		basketCache: basketCache,
		catalog:     cat,
		ledger:      ledger,
		profiles:    profiles,
		events:      sink,
		locks:       locks,
	}
}

// WithAtomicReserver routes stock reservation and order persistence through r.
func (s *Service) WithAtomicReserver(r AtomicReserver) *Service {
	s.atomic = r
	return s
}
