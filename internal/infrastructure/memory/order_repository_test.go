package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
)

func TestOrderRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	o := domain.New("o-1", "ada@example.com")

	require.NoError(t, repo.Insert(ctx, o))
	assert.ErrorIs(t, repo.Insert(ctx, o), domain.ErrConflict)

	require.NoError(t, o.Normalized([]domain.Line{{SKU: "laptop", Quantity: 1}}))
	require.NoError(t, repo.Update(ctx, o))

	got, err := repo.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNormalized, got.Status)

	got.Lines[0].Quantity = 99
	again, _ := repo.Get(ctx, "o-1")
	assert.Equal(t, 1, again.Lines[0].Quantity)
}

func TestOrderRepositoryMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	_, err := repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, domain.New("nope", "a")), domain.ErrNotFound)
	assert.Error(t, repo.Insert(ctx, &domain.Order{}))
}
