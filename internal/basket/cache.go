package basket

import (
	"context"
	"errors"
)

type Cache interface {
	Get(ctx context.Context, buyerID string) (*Basket, error)
	Set(ctx context.Context, buyerID string, b *Basket) error
	Delete(ctx context.Context, buyerID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// NoopCache is used when no redis instance is configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*Basket, error) { return nil, ErrCacheMiss }
func (NoopCache) Set(context.Context, string, *Basket) error   { return nil }
func (NoopCache) Delete(context.Context, string) error         { return nil }
