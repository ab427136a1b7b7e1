package fulfillment

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultListLimit = 100

// OrderView — заказ вместе с лентой событий.
type OrderView struct {
	Order    domain.Order
	Timeline []domain.TimelineEvent
}

// Dashboard — сводные счётчики админки.
type Dashboard struct {
	TotalProducts  int
	ActiveProducts int
	TotalOrders    int
	PendingOrders  int
}

// Queries отвечает на чтение заказов для админки.
type Queries struct {
	orders   domain.OrderRepository
	catalog  domain.CatalogRepository
	timeline domain.TimelineRepository
}

// NewQueries создаёт сервис чтения. timeline может быть nil.
func NewQueries(orders domain.OrderRepository, catalog domain.CatalogRepository, timeline domain.TimelineRepository) *Queries {
	return &Queries{orders: orders, catalog: catalog, timeline: timeline}
}

// GetOrder возвращает заказ (в том числе архивный) с лентой событий.
func (q *Queries) GetOrder(ctx context.Context, orderID string) (OrderView, error) {
	order, err := q.orders.GetIncludingDeleted(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}
	view := OrderView{Order: order}
	if q.timeline != nil {
		events, err := q.timeline.List(orderID)
		if err != nil {
			return OrderView{}, fmt.Errorf("list timeline %s: %w", orderID, err)
		}
		view.Timeline = events
	}
	return view, nil
}

// ListOrders возвращает активные заказы по фильтру.
func (q *Queries) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	return q.orders.List(ctx, filter)
}

// ListCompletedOrders отдаёт историю завершённых заказов, включая архив.
func (q *Queries) ListCompletedOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	return q.ListOrders(ctx, domain.OrderFilter{
		Status:         domain.OrderStatusCompleted,
		IncludeDeleted: true,
		Limit:          limit,
	})
}

// Dashboard считает товары и заказы для главной страницы админки.
func (q *Queries) Dashboard(ctx context.Context) (Dashboard, error) {
	products, err := q.catalog.List(ctx, domain.ProductFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list products: %w", err)
	}
	orders, err := q.orders.List(ctx, domain.OrderFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list orders: %w", err)
	}

	d := Dashboard{TotalProducts: len(products), TotalOrders: len(orders)}
	for _, p := range products {
		if p.Active {
			d.ActiveProducts++
		}
	}
	for _, o := range orders {
		if o.Status == domain.OrderStatusPending {
			d.PendingOrders++
		}
	}
	return d, nil
}
