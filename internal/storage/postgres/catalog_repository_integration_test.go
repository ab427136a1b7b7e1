package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestCatalogRepository_PostgresCRUD(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewCatalogRepository(store)
	ctx := context.Background()

	p := sampleProduct("product-1", "Knitted hat", 5)
	require.NoError(t, repo.Create(ctx, p))
	assert.ErrorIs(t, repo.Create(ctx, p), domain.ErrProductExists)

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Knitted hat", got.Name)
	assert.True(t, p.Price.Equal(got.Price))

	hidden := sampleProduct("product-2", "Draft", 1)
	hidden.Active = false
	require.NoError(t, repo.Create(ctx, hidden))

	visible, err := repo.List(ctx, domain.ProductFilter{OnlyVisible: true})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, p.ID, visible[0].ID)

	require.NoError(t, repo.SetRejected(ctx, p.ID, true))
	visible, err = repo.List(ctx, domain.ProductFilter{OnlyVisible: true})
	require.NoError(t, err)
	assert.Empty(t, visible)

	got.Stock = -1
	assert.ErrorIs(t, repo.Update(ctx, got), domain.ErrStockNegative)

	require.NoError(t, repo.Delete(ctx, p.ID))
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), domain.ErrProductNotFound)
	assert.ErrorIs(t, repo.SetRejected(ctx, p.ID, false), domain.ErrProductNotFound)
}

func TestCatalogRepository_PostgresConditionalDecrement(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewCatalogRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleProduct("yarn", "Merino yarn", 2)))

	err := repo.DecrementStock(ctx, "yarn", 3)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Merino yarn", stockErr.ProductName)
	assert.Equal(t, int64(2), stockErr.Available)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	require.NoError(t, repo.DecrementStock(ctx, "yarn", 2))
	require.NoError(t, repo.IncrementStock(ctx, "yarn", 5))
	got, err := repo.Get(ctx, "yarn")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Stock)

	assert.ErrorIs(t, repo.DecrementStock(ctx, "missing", 1), domain.ErrProductNotFound)
	assert.ErrorIs(t, repo.IncrementStock(ctx, "missing", 1), domain.ErrProductNotFound)
	assert.ErrorIs(t, repo.DecrementStock(ctx, "yarn", 0), domain.ErrItemQtyInvalid)
}

func TestCatalogRepository_PostgresConcurrentDecrementNeverOversells(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewCatalogRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleProduct("last-units", "Socks", 10)))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.DecrementStock(ctx, "last-units", 1); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, "last-units")
	require.NoError(t, err)
	assert.Equal(t, 10, ok)
	assert.Zero(t, got.Stock)
}

func sampleProduct(id, name string, stock int64) domain.Product {
	now := time.Now().UTC().Round(time.Microsecond)
	return domain.Product{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString("12.30"),
		Stock:     stock,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
