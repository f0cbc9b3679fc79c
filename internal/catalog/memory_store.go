package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore implements Store with in-memory storage. All mutations happen
// under one mutex, so a stock adjustment is atomic per product.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]*Product
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[int64]*Product)}
}

// Put inserts or replaces a product (seeding and tests).
func (s *MemoryStore) Put(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.products[p.ID] = &cp
}

// Delete removes a product if present.
func (s *MemoryStore) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// InsertProduct satisfies the seeding Inserter.
func (s *MemoryStore) InsertProduct(_ context.Context, p *Product) error {
	s.Put(*p)
	return nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListProducts(_ context.Context, q ListQuery) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if !matches(p, q) {
			continue
		}
		matched = append(matched, *p)
	}

	switch q.OrderBy {
	case "price":
		sort.Slice(matched, func(i, j int) bool { return matched[i].Price < matched[j].Price })
	case "priceDesc":
		sort.Slice(matched, func(i, j int) bool { return matched[i].Price > matched[j].Price })
	default:
		sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	}

	page, size := normalizePaging(q.Page, q.Size)
	total := len(matched)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return &Page{
		Items:      matched[start:end],
		Page:       page,
		Size:       size,
		TotalCount: total,
	}, nil
}

func (s *MemoryStore) AdjustStock(_ context.Context, id int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return ErrInsufficientStock
	}
	p.Stock += delta
	return nil
}

func (s *MemoryStore) SetStock(_ context.Context, id int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock = quantity
	return nil
}

func matches(p *Product, q ListQuery) bool {
	if q.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
		return false
	}
	if len(q.Brands) > 0 && !containsFold(q.Brands, p.Brand) {
		return false
	}
	if len(q.Types) > 0 && !containsFold(q.Types, p.Type) {
		return false
	}
	return true
}

func containsFold(values []string, v string) bool {
	for _, c := range values {
		if strings.EqualFold(c, v) {
			return true
		}
	}
	return false
}

func normalizePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 6
	}
	if size > 50 {
		size = 50
	}
	return page, size
}
