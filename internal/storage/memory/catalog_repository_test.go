package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newProduct(id string, stock int64) domain.Product {
	now := time.Now().UTC()
	return domain.Product{
		ID:        id,
		Name:      "Product " + id,
		Price:     decimal.RequireFromString("9.90"),
		Stock:     stock,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCatalogRepository_DecrementIncrement(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCatalogRepository()
	if err := repo.Create(ctx, newProduct("p-1", 5)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.DecrementStock(ctx, "p-1", 3); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	err := repo.DecrementStock(ctx, "p-1", 3)
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 3 || stockErr.ProductName != "Product p-1" {
		t.Fatalf("unexpected error details: %+v", stockErr)
	}

	if err := repo.IncrementStock(ctx, "p-1", 3); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	p, _ := repo.Get(ctx, "p-1")
	if p.Stock != 5 {
		t.Fatalf("expected stock 5, got %d", p.Stock)
	}

	if err := repo.DecrementStock(ctx, "missing", 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := repo.DecrementStock(ctx, "p-1", 0); !errors.Is(err, domain.ErrItemQtyInvalid) {
		t.Fatalf("expected ErrItemQtyInvalid, got %v", err)
	}
}

func TestCatalogRepository_ConcurrentDecrementNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCatalogRepository()
	if err := repo.Create(ctx, newProduct("p-1", 10)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.DecrementStock(ctx, "p-1", 1); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	p, _ := repo.Get(ctx, "p-1")
	if success != 10 || p.Stock != 0 {
		t.Fatalf("expected 10 successful decrements and zero stock, got %d and %d", success, p.Stock)
	}
}

func TestCatalogRepository_ListVisibleAndReject(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCatalogRepository()

	visible := newProduct("p-1", 1)
	inactive := newProduct("p-2", 1)
	inactive.Active = false
	rejected := newProduct("p-3", 1)

	for _, p := range []domain.Product{visible, inactive, rejected} {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if err := repo.SetRejected(ctx, rejected.ID, true); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	all, _ := repo.List(ctx, domain.ProductFilter{})
	if len(all) != 3 {
		t.Fatalf("expected 3 products, got %d", len(all))
	}
	shown, _ := repo.List(ctx, domain.ProductFilter{OnlyVisible: true})
	if len(shown) != 1 || shown[0].ID != visible.ID {
		t.Fatalf("unexpected storefront list: %+v", shown)
	}

	if err := repo.SetRejected(ctx, "missing", true); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCatalogRepository_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCatalogRepository()
	p := newProduct("p-1", 1)
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(ctx, p); !errors.Is(err, domain.ErrProductExists) {
		t.Fatalf("expected ErrProductExists, got %v", err)
	}

	p.Stock = -1
	if err := repo.Update(ctx, p); !errors.Is(err, domain.ErrStockNegative) {
		t.Fatalf("expected ErrStockNegative, got %v", err)
	}
	p.Stock = 7
	p.Name = "Renamed"
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, _ := repo.Get(ctx, p.ID)
	if got.Stock != 7 || got.Name != "Renamed" {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, p.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
