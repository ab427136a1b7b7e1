package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newService() *catalog.Service {
	return catalog.NewService(memory.NewCatalogRepository(), nil)
}

func TestCreateProduct_Validates(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, catalog.ProductInput{Price: decimal.NewFromInt(-1), Stock: -1})
	var verr *catalog.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errs, 3)
	assert.ErrorIs(t, err, domain.ErrStockNegative)

	p, err := svc.CreateProduct(ctx, catalog.ProductInput{
		Name:   "Amigurumi bear",
		Price:  decimal.RequireFromString("24.999"),
		Stock:  4,
		Active: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "25", p.Price.String())
}

func TestStorefrontVisibility(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	shown, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: "Shown", Price: decimal.NewFromInt(1), Active: true})
	require.NoError(t, err)
	hidden, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: "Hidden", Price: decimal.NewFromInt(1)})
	require.NoError(t, err)
	rejected, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: "Rejected", Price: decimal.NewFromInt(1), Active: true})
	require.NoError(t, err)
	require.NoError(t, svc.RejectProduct(ctx, rejected.ID))

	list, err := svc.ListStorefront(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, shown.ID, list[0].ID)

	for _, id := range []string{hidden.ID, rejected.ID} {
		_, err := svc.GetStorefrontProduct(ctx, id)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	}

	require.NoError(t, svc.RestoreProduct(ctx, rejected.ID))
	_, err = svc.GetStorefrontProduct(ctx, rejected.ID)
	assert.NoError(t, err)

	all, err := svc.ListProducts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: "Scarf", Price: decimal.NewFromInt(10), Stock: 1, Active: true})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, p.ID, catalog.ProductInput{Name: "Scarf XL", Price: decimal.NewFromInt(12), Stock: 9, Active: true})
	require.NoError(t, err)
	assert.Equal(t, int64(9), updated.Stock)
	assert.Equal(t, p.CreatedAt, updated.CreatedAt)

	_, err = svc.UpdateProduct(ctx, p.ID, catalog.ProductInput{Name: "Scarf", Stock: -2})
	assert.ErrorIs(t, err, domain.ErrStockNegative)

	_, err = svc.UpdateProduct(ctx, "missing", catalog.ProductInput{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.ErrorIs(t, svc.RejectProduct(ctx, p.ID), domain.ErrProductNotFound)
}
