package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
)

func seeded() *Catalog {
	return NewCatalog(
		domain.Product{SKU: "laptop", Title: "Laptop", UnitPrice: decimal.NewFromInt(1200), Stock: 5},
		domain.Product{SKU: "mouse", Title: "Mouse", UnitPrice: decimal.NewFromInt(25), Stock: 10},
	)
}

func TestCatalogGetUnknown(t *testing.T) {
	c := seeded()
	_, err := c.Get(context.Background(), "keyboard")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.HasStock(context.Background(), "keyboard", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, c.Reserve(context.Background(), "keyboard", 1), domain.ErrNotFound)
	assert.ErrorIs(t, c.Release(context.Background(), "keyboard", 1), domain.ErrNotFound)
}

func TestCatalogHasStock(t *testing.T) {
	c := seeded()
	ok, err := c.HasStock(context.Background(), "laptop", 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.HasStock(context.Background(), "laptop", 6)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogReserveRelease(t *testing.T) {
	ctx := context.Background()
	c := seeded()

	require.NoError(t, c.Reserve(ctx, "laptop", 2))
	p, err := c.Get(ctx, "laptop")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	assert.ErrorIs(t, c.Reserve(ctx, "laptop", 4), domain.ErrInsufficientStock)
	assert.ErrorIs(t, c.Reserve(ctx, "laptop", 0), domain.ErrInvalidQuantity)

	require.NoError(t, c.Release(ctx, "laptop", 2))
	p, _ = c.Get(ctx, "laptop")
	assert.Equal(t, 5, p.Stock)
}

func TestCatalogGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := seeded()
	p, _ := c.Get(ctx, "mouse")
	p.Stock = 0

	again, _ := c.Get(ctx, "mouse")
	assert.Equal(t, 10, again.Stock)
}

func TestCatalogListAndUpsert(t *testing.T) {
	ctx := context.Background()
	c := seeded()

	require.NoError(t, c.Upsert(ctx, domain.Product{SKU: "keyboard", Title: "Keyboard", UnitPrice: decimal.NewFromInt(45), Stock: 7}))
	assert.ErrorIs(t, c.Upsert(ctx, domain.Product{SKU: "bad", Stock: -1}), domain.ErrInvalidProduct)

	list, err := c.List(ctx)
	require.NoError(t, err)
	skus := make([]string, 0, len(list))
	for _, p := range list {
		skus = append(skus, p.SKU)
	}
	assert.Equal(t, []string{"keyboard", "laptop", "mouse"}, skus)
}

func TestCatalogConcurrentReservationsNeverOversell(t *testing.T) {
	ctx := context.Background()
	c := seeded()

	var wg sync.WaitGroup
	var mu sync.Mutex
	reserved := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Reserve(ctx, "laptop", 1); err == nil {
				mu.Lock()
				reserved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	p, _ := c.Get(ctx, "laptop")
	assert.Equal(t, 5, reserved)
	assert.Equal(t, 0, p.Stock)
}
