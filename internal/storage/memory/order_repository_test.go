package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:     "order-1",
		UserID: "user-1",
		Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ID: "item-1", ProductID: "product-1", Quantity: 5, UnitPrice: decimal.NewFromInt(1), CreatedAt: now},
		},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder()

	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(ctx, order); !errors.Is(err, domain.ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists, got %v", err)
	}

	stored, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ID != order.ID {
		t.Fatalf("expected id %s, got %s", order.ID, stored.ID)
	}
	if len(stored.Items) != 1 || stored.Items[0].OrderID != order.ID {
		t.Fatalf("unexpected items: %+v", stored.Items)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()

	first := newOrder()
	second := newOrder()
	second.ID = "order-2"
	second.Status = domain.OrderStatusCompleted
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	third := newOrder()
	third.ID = "order-3"
	third.UserID = "user-2"
	third.Status = domain.OrderStatusCompleted

	for _, o := range []domain.Order{first, second, third} {
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if err := repo.SoftDelete(ctx, third.ID, time.Now()); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	orders, err := repo.List(ctx, domain.OrderFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != second.ID {
		t.Fatalf("expected newest first for user-1, got %+v", orders)
	}

	completed, err := repo.List(ctx, domain.OrderFilter{Status: domain.OrderStatusCompleted})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("archived order must be hidden, got %d", len(completed))
	}

	history, err := repo.List(ctx, domain.OrderFilter{Status: domain.OrderStatusCompleted, IncludeDeleted: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected archived order in history, got %d", len(history))
	}

	limited, _ := repo.List(ctx, domain.OrderFilter{Limit: 1})
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestOrderRepository_Save(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder()
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	stored.Status = domain.OrderStatusProcessing
	stored.StockDeducted = true
	if err := repo.Save(ctx, stored); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	updated, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if updated.Status != domain.OrderStatusProcessing || !updated.StockDeducted {
		t.Fatalf("unexpected state: %+v", updated)
	}
	if updated.Version != stored.Version+1 {
		t.Fatalf("expected version increment, got %d", updated.Version)
	}
}

func TestOrderRepository_SaveVersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder()
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	order.Version = 42
	if err := repo.Save(ctx, order); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected version conflict error, got %v", err)
	}
}

func TestOrderRepository_SoftAndHardDelete(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder()
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := repo.SoftDelete(ctx, order.ID, at); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}
	if err := repo.SoftDelete(ctx, order.ID, at); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("second soft delete must not find the order, got %v", err)
	}
	if _, err := repo.Get(ctx, order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("archived order must be hidden from Get, got %v", err)
	}

	archived, err := repo.GetIncludingDeleted(ctx, order.ID)
	if err != nil {
		t.Fatalf("get including deleted failed: %v", err)
	}
	if archived.DeletedAt == nil || !archived.DeletedAt.Equal(at) {
		t.Fatalf("unexpected deleted_at: %v", archived.DeletedAt)
	}
	if len(archived.Items) != 1 {
		t.Fatal("soft delete must keep items")
	}

	if err := repo.DeleteItems(ctx, order.ID); err != nil {
		t.Fatalf("delete items failed: %v", err)
	}
	if err := repo.HardDelete(ctx, order.ID); err != nil {
		t.Fatalf("hard delete failed: %v", err)
	}
	if _, err := repo.GetIncludingDeleted(ctx, order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected order to be gone, got %v", err)
	}
	if err := repo.HardDelete(ctx, order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
