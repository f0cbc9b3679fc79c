package basket

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/catalog"
	"github.com/JorgeRiveraMancilla/go-store-api/pkg/keylock"
)

var (
	ErrInvalidBuyerID  = errors.New("buyer id must not be empty")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrQuantityExceedsHeld rejects removals larger than the held quantity
	// instead of clamping, so client bugs surface instead of hiding.
	ErrQuantityExceedsHeld = errors.New("quantity to remove exceeds quantity in basket")
)

// Service owns basket lifecycle. Mutations on the same buyer id serialize on
// a per-key lock; reads go through the cache with singleflight to prevent a
// stampede on cache misses.
type Service struct {
	repo    Repository
	cache   Cache
	catalog catalog.Store
	locks   *keylock.KeyLock
	sfg     singleflight.Group
}

// NewService builds a basket service. The key lock is shared with the
// checkout orchestrator so a checkout excludes basket mutations for the same
// buyer.
func NewService(repo Repository, cache Cache, cat catalog.Store, locks *keylock.KeyLock) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		catalog: cat,
		locks:   locks,
	}
}

func (s *Service) GetBasket(ctx context.Context, buyerID string) (*Basket, error) {
	if buyerID == "" {
		return nil, ErrInvalidBuyerID
	}

	v, err, _ := s.sfg.Do(buyerID, func() (interface{}, error) {
		// The fill holds the buyer's lock so a concurrent mutation cannot
		// land between the repository read and the cache write and leave a
		// stale basket cached until its TTL expires.
		s.locks.Lock(buyerID)
		defer s.locks.Unlock(buyerID)

		b, err := s.cache.Get(ctx, buyerID)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("basket cache get error: %v", err) // log cache error but continue
		}

		b, err = s.repo.GetBasket(ctx, buyerID)
		if err != nil {
			return nil, err
		}

		if errSet := s.cache.Set(ctx, buyerID, b); errSet != nil {
			log.Printf("basket cache set error: %v", errSet)
		}

		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Basket), nil
}

func (s *Service) CreateBasket(ctx context.Context, buyerID string) (*Basket, error) {
	if buyerID == "" {
		return nil, ErrInvalidBuyerID
	}

	s.locks.Lock(buyerID)
	defer s.locks.Unlock(buyerID)

	if existing, err := s.repo.GetBasket(ctx, buyerID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrBasketNotFound) {
		return nil, err
	}

	b := &Basket{BuyerID: buyerID, Items: []BasketItem{}}
	if err := s.repo.UpsertBasket(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// AddItem adds quantity units of productID to the buyer's basket, creating
// the basket on first add. The product must exist in the catalog.
func (s *Service) AddItem(ctx context.Context, buyerID string, productID int64, quantity int) (*Basket, error) {
	if buyerID == "" {
		return nil, ErrInvalidBuyerID
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	s.locks.Lock(buyerID)
	defer s.locks.Unlock(buyerID)

	b, err := s.repo.GetBasket(ctx, buyerID)
	if errors.Is(err, ErrBasketNotFound) {
		b = &Basket{BuyerID: buyerID, Items: []BasketItem{}}
	} else if err != nil {
		return nil, err
	}

	if item := b.Item(productID); item != nil {
		item.Quantity += quantity
	} else {
		if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
			return nil, err
		}
		b.Items = append(b.Items, BasketItem{
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   time.Now(),
		})
	}

	if err := s.repo.UpsertBasket(ctx, b); err != nil {
		return nil, err
	}
	s.invalidateCache(buyerID)
	return b, nil
}

// RemoveItem decrements quantity units of productID. Removing the last unit
// deletes the line; removing more than held fails.
func (s *Service) RemoveItem(ctx context.Context, buyerID string, productID int64, quantity int) (*Basket, error) {
	if buyerID == "" {
		return nil, ErrInvalidBuyerID
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	s.locks.Lock(buyerID)
	defer s.locks.Unlock(buyerID)

	b, err := s.repo.GetBasket(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	item := b.Item(productID)
	if item == nil {
		return nil, ErrItemNotFound
	}
	if quantity > item.Quantity {
		return nil, ErrQuantityExceedsHeld
	}

	item.Quantity -= quantity
	if item.Quantity == 0 {
		for i := range b.Items {
			if b.Items[i].ProductID == productID {
				b.Items = append(b.Items[:i], b.Items[i+1:]...)
				break
			}
		}
	}

	if err := s.repo.UpsertBasket(ctx, b); err != nil {
		return nil, err
	}
	s.invalidateCache(buyerID)
	return b, nil
}

// MergeOnAuthentication resolves the anonymous and user baskets when a buyer
// logs in. The user basket always wins: a previously saved cart beats
// transient anonymous browsing.
func (s *Service) MergeOnAuthentication(ctx context.Context, anonymousID, userID string) (*Basket, error) {
	if userID == "" {
		return nil, ErrInvalidBuyerID
	}

	// Lock both keys in a fixed order so two concurrent logins cannot deadlock.
	keys := []string{userID}
	if anonymousID != "" && anonymousID != userID {
		keys = append(keys, anonymousID)
		sort.Strings(keys)
	}
	for _, k := range keys {
		s.locks.Lock(k)
	}
	defer func() {
		for _, k := range keys {
			s.locks.Unlock(k)
		}
	}()

	userBasket, err := s.repo.GetBasket(ctx, userID)
	if err != nil && !errors.Is(err, ErrBasketNotFound) {
		return nil, err
	}

	var anonymousBasket *Basket
	if anonymousID != "" && anonymousID != userID {
		anonymousBasket, err = s.repo.GetBasket(ctx, anonymousID)
		if err != nil && !errors.Is(err, ErrBasketNotFound) {
			return nil, err
		}
	}

	switch {
	case userBasket == nil && anonymousBasket == nil:
		userBasket = &Basket{BuyerID: userID, Items: []BasketItem{}}
		if err := s.repo.UpsertBasket(ctx, userBasket); err != nil {
			return nil, err
		}

	case userBasket == nil:
		// Re-own the anonymous basket under the user id.
		if err := s.repo.DeleteBasket(ctx, anonymousID); err != nil {
			return nil, err
		}
		anonymousBasket.BuyerID = userID
		if err := s.repo.UpsertBasket(ctx, anonymousBasket); err != nil {
			return nil, err
		}
		userBasket = anonymousBasket

	case anonymousBasket != nil:
		// Both exist: the anonymous basket is discarded entirely.
		if err := s.repo.DeleteBasket(ctx, anonymousID); err != nil {
			return nil, err
		}
	}

	if anonymousID != "" {
		s.invalidateCache(anonymousID)
	}
	s.invalidateCache(userID)
	return userBasket, nil
}

func (s *Service) RemoveBasket(ctx context.Context, buyerID string) error {
	if buyerID == "" {
		return ErrInvalidBuyerID
	}

	s.locks.Lock(buyerID)
	defer s.locks.Unlock(buyerID)

	if err := s.repo.DeleteBasket(ctx, buyerID); err != nil {
		return err
	}
	s.invalidateCache(buyerID)
	return nil
}

// AttachPaymentIntent stores the gateway correlation on the basket so a later
// checkout and the webhook can find it.
func (s *Service) AttachPaymentIntent(ctx context.Context, buyerID, intentID, clientSecret string) (*Basket, error) {
	if buyerID == "" {
		return nil, ErrInvalidBuyerID
	}

	s.locks.Lock(buyerID)
	defer s.locks.Unlock(buyerID)

	b, err := s.repo.GetBasket(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	b.PaymentIntentID = intentID
	b.ClientSecret = clientSecret
	if err := s.repo.UpsertBasket(ctx, b); err != nil {
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
