package payment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/basket"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/catalog"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/pricing"
	"github.com/JorgeRiveraMancilla/go-store-api/pkg/keylock"
)

const DefaultCurrency = "usd"

// Service sizes and correlates payment intents for a buyer's basket.
// Re-invoking it with an unchanged basket sends the gateway an update with
// the identical amount, a no-op from the buyer's perspective.
type Service struct {
	gateway Gateway
	baskets basket.Repository
	cache   basket.Cache
	catalog catalog.Store
	locks   *keylock.KeyLock
}

// NewService builds the payment orchestrator. locks must be the same instance
// the basket service uses, so intent creation serializes with basket
// mutations and other payment calls for the same buyer.
func NewService(gateway Gateway, baskets basket.Repository, cache basket.Cache, cat catalog.Store, locks *keylock.KeyLock) *Service {
	return &Service{gateway: gateway, baskets: baskets, cache: cache, catalog: cat, locks: locks}
}

// StartOrUpdatePayment creates a payment intent for the basket, or updates
// the amount of the one already attached. The amount uses the same delivery
// fee rule as checkout. The whole read-check-create sequence holds the
// buyer's lock, so two concurrent calls cannot both see an intentless basket
// and mint two gateway intents; the second call waits and updates instead.
func (s *Service) StartOrUpdatePayment(ctx context.Context, buyerID string) (*basket.Basket, error) {
	if buyerID == "" {
		return nil, basket.ErrInvalidBuyerID
	}

	s.locks.Lock(buyerID)
	defer s.locks.Unlock(buyerID)

	b, err := s.baskets.GetBasket(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	var subtotal int64
	for _, item := range b.Items {
		p, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to price basket line %d: %w", item.ProductID, err)
		}
		subtotal += p.Price * int64(item.Quantity)
	}
	amount := pricing.Total(subtotal)

	// The gateway round-trip happens under the lock; a slow gateway delays
	// this buyer only.
	var intent *Intent
	if b.PaymentIntentID == "" {
		intent, err = s.gateway.CreateIntent(ctx, amount, DefaultCurrency)
	} else {
		intent, err = s.gateway.UpdateIntentAmount(ctx, b.PaymentIntentID, amount)
	}
	if err != nil {
		return nil, err
	}

	b.PaymentIntentID = intent.ID
	if intent.ClientSecret != "" {
		// Updates may omit the secret; keep the one from intent creation.
		b.ClientSecret = intent.ClientSecret
	}

	if err := s.baskets.UpsertBasket(ctx, b); err != nil {
		return nil, err
	}
	s.invalidateCache(buyerID)
	return b, nil
}

func (s *Service) invalidateCache(buyerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, buyerID); err != nil {
		log.Printf("basket cache invalidate error: %v", err)
	}
}
