package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/basket"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/events"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/order"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/pricing"
)

// PlaceOrder converts the buyer's basket into an order. With an AtomicReserver
// the stock decrements and the order insert commit as one unit; without one, a
// failure before the order is persisted undoes every stock decrement already
// applied. Either way the order exists with all its stock reserved or nothing
// changed.
func (s *Service) PlaceOrder(ctx context.Context, buyerID string, addr order.Address, saveAddress bool) (string, error) {
	if buyerID == "" {
		return "", basket.ErrInvalidBuyerID
	}

	s.locks.Lock(buyerID)
	defer s.locks.Unlock(buyerID)

	b, err := s.baskets.GetBasket(ctx, buyerID)
	if err != nil {
		return "", err
	}
	if b.IsEmpty() {
		return "", ErrEmptyBasket
	}

	items, reservations, err := s.snapshotLines(ctx, b)
	if err != nil {
		return "", err
	}

	var subtotal int64
	for _, item := range items {
		subtotal += item.Total()
	}
	deliveryFee := pricing.DeliveryFee(subtotal)

	o := &order.Order{
		ID:              uuid.New().String(),
		BuyerID:         buyerID,
		Items:           items,
		Subtotal:        subtotal,
		DeliveryFee:     deliveryFee,
		Total:           subtotal + deliveryFee,
		Status:          order.StatusPending,
		PaymentIntentID: b.PaymentIntentID,
		Address:         addr,
		CreatedAt:       time.Now(),
	}

	if s.atomic != nil {
		if err := s.atomic.ReserveAndInsert(ctx, reservations, o); err != nil {
			return "", err
		}
	} else {
		if err := s.reserveStock(ctx, reservations); err != nil {
			return "", err
		}
		if err := s.ledger.Insert(ctx, o); err != nil {
			s.releaseStock(ctx, reservations)
			return "", fmt.Errorf("failed to persist order: %w", err)
		}
	}

	// The order is committed from here on. Address save is best-effort and
	// must not roll it back.
	if saveAddress {
		if err := s.profiles.SaveAddress(ctx, buyerID, addr); err != nil {
			log.Printf("failed to save address for buyer %s: %v", buyerID, err)
		}
	}

	if err := s.baskets.DeleteBasket(ctx, buyerID); err != nil && !errors.Is(err, basket.ErrBasketNotFound) {
		log.Printf("failed to delete basket for buyer %s after checkout: %v", buyerID, err)
	}
	s.invalidateBasketCache(buyerID)

	if err := s.events.Enqueue(events.TypeOrderPlaced, o.ID, orderPlacedPayload(o)); err != nil {
		log.Printf("failed to enqueue order placed event for %s: %v", o.ID, err)
	}

	return o.ID, nil
}

// snapshotLines prices every basket line from the current catalog and pairs
// each with the stock decrement it will need.
func (s *Service) snapshotLines(ctx context.Context, b *basket.Basket) ([]order.Item, []Reservation, error) {
	items := make([]order.Item, 0, len(b.Items))
	reservations := make([]Reservation, 0, len(b.Items))

	for _, line := range b.Items {
		p, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, nil, err
		}

		reservations = append(reservations, Reservation{ProductID: line.ProductID, Quantity: line.Quantity})
		items = append(items, order.Item{
			ProductID:   p.ID,
			Name:        p.Name,
			Description: p.Description,
			Brand:       p.Brand,
			Type:        p.Type,
			ImageURL:    p.ImageURL,
			UnitPrice:   p.Price,
			Quantity:    line.Quantity,
		})
	}

	return items, reservations, nil
}

// reserveStock decrements stock line by line. Any failure re-increments what
// was already taken, so stock for every line is unchanged on error.
func (s *Service) reserveStock(ctx context.Context, reservations []Reservation) error {
	taken := make([]Reservation, 0, len(reservations))
	for _, rsv := range reservations {
		if err := s.catalog.AdjustStock(ctx, rsv.ProductID, -rsv.Quantity); err != nil {
			s.releaseStock(ctx, taken)
			return err
		}
		taken = append(taken, rsv)
	}
	return nil
}

func (s *Service) releaseStock(ctx context.Context, taken []Reservation) {
	// Compensation must run even when the caller's context is already
	// cancelled, otherwise stock stays decremented with no order.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	for _, rsv := range taken {
		if err := s.catalog.AdjustStock(ctx, rsv.ProductID, rsv.Quantity); err != nil {
			log.Printf("failed to release %d units of product %d: %v", rsv.Quantity, rsv.ProductID, err)
		}
	}
}

func (s *Service) invalidateBasketCache(buyerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.basketCache.Delete(ctx, buyerID); err != nil {
		log.Printf("basket cache invalidate error: %v", err)
	}
}

func orderPlacedPayload(o *order.Order) map[string]any {
	return map[string]any{
		"order_id":     o.ID,
		"buyer_id":     o.BuyerID,
		"subtotal":     o.Subtotal,
		"delivery_fee": o.DeliveryFee,
		"total":        o.Total,
		"status":       o.Status,
		"placed_at":    o.CreatedAt,
	}
}
