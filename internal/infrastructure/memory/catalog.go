package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
)

// Catalog keeps products in a map guarded by one lock, so stock checks and
// stock mutations never interleave.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]*domain.Product
}

var _ domain.Store = (*Catalog)(nil)

func NewCatalog(products ...domain.Product) *Catalog {
	c := &Catalog{
		items: make(map[string]*domain.Product, len(products)),
	}
	for _, p := range products {
		c.items[p.SKU] = cloneProduct(&p)
	}
	return c
}

func (c *Catalog) Get(ctx context.Context, sku string) (domain.Product, error) {
	_ = ctx

	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[sku]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrNotFound, sku)
	}
	return *cloneProduct(item), nil
}

func (c *Catalog) HasStock(ctx context.Context, sku string, quantity int) (bool, error) {
	_ = ctx

	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[sku]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrNotFound, sku)
	}
	return item.HasStock(quantity), nil
}

func (c *Catalog) Reserve(ctx context.Context, sku string, quantity int) error {
	_ = ctx

	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[sku]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, sku)
	}
	if err := item.Deduct(quantity); err != nil {
		return fmt.Errorf("%w: %s", err, sku)
	}
	return nil
}

func (c *Catalog) Release(ctx context.Context, sku string, quantity int) error {
	_ = ctx

	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[sku]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, sku)
	}
	if err := item.Restock(quantity); err != nil {
		return fmt.Errorf("%w: %s", err, sku)
	}
	return nil
}

func (c *Catalog) List(ctx context.Context) ([]domain.Product, error) {
	_ = ctx

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, *cloneProduct(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (c *Catalog) Upsert(ctx context.Context, p domain.Product) error {
	_ = ctx
	if err := p.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[p.SKU] = cloneProduct(&p)
	return nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
