package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Inserter is the subset of a store needed for seeding.
type Inserter interface {
	InsertProduct(ctx context.Context, p *Product) error
}

// Seed loads products from a JSON array and inserts them. Returns the number
// of products read.
func Seed(ctx context.Context, dst Inserter, r io.Reader) (int, error) {
	var products []Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return 0, fmt.Errorf("failed to decode seed data: %w", err)
	}

	for i := range products {
		if err := dst.InsertProduct(ctx, &products[i]); err != nil {
			return 0, fmt.Errorf("failed to insert seed product %d: %w", products[i].ID, err)
		}
	}
	return len(products), nil
}

// SeedFromFile seeds from a JSON fixture on disk.
func SeedFromFile(ctx context.Context, dst Inserter, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return Seed(ctx, dst, f)
}
