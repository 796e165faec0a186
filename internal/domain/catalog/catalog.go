package catalog

import (
	"context"
)

// Catalog owns products and their stock counters. Implementations must make
// reads and mutations of one SKU mutually exclusive.
type Catalog interface {
	Get(ctx context.Context, sku string) (Product, error)
	HasStock(ctx context.Context, sku string, quantity int) (bool, error)
	Reserve(ctx context.Context, sku string, quantity int) error
	// Release is a compensating action for a prior Reserve.
	Release(ctx context.Context, sku string, quantity int) error
}

// Store is the administrative side of a catalog.
type Store interface {
	Catalog
	List(ctx context.Context) ([]Product, error)
	Upsert(ctx context.Context, p Product) error
}
