package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestTimelineRepository_PostgresAppendAndList(t *testing.T) {
	store := openMigratedStore(t)
	timeline := NewTimelineRepository(store)

	base := time.Now().UTC().Add(-time.Minute).Round(time.Microsecond)
	require.NoError(t, timeline.Append(domain.TimelineEvent{
		OrderID:  "order-1",
		Type:     domain.EventOrderStockDeducted,
		Occurred: base.Add(10 * time.Second),
	}))
	require.NoError(t, timeline.Append(domain.TimelineEvent{
		OrderID:  "order-1",
		Type:     domain.EventOrderStatusChanged,
		Reason:   "pending -> processing",
		Occurred: base,
	}))
	// пустое время заполняется текущим
	require.NoError(t, timeline.Append(domain.TimelineEvent{OrderID: "order-1", Type: domain.EventOrderCancelled}))

	events, err := timeline.List("order-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventOrderStatusChanged, events[0].Type)
	assert.Equal(t, domain.EventOrderStockDeducted, events[1].Type)
	assert.Equal(t, domain.EventOrderCancelled, events[2].Type)

	assert.ErrorIs(t, timeline.Append(domain.TimelineEvent{Type: "x"}), domain.ErrOrderIDRequired)
}

func TestTimelineRepository_PostgresSurvivesPurge(t *testing.T) {
	store := openMigratedStore(t)
	orders := NewOrderRepository(store)
	timeline := NewTimelineRepository(store)
	ctx := context.Background()

	order := sampleOrder("order-gone", "user-1", time.Now().UTC().Round(time.Microsecond))
	require.NoError(t, orders.Create(ctx, order))
	require.NoError(t, timeline.Append(domain.TimelineEvent{OrderID: order.ID, Type: domain.EventOrderPurged}))
	require.NoError(t, orders.(domain.OrderPurger).Purge(ctx, order.ID))

	events, err := timeline.List(order.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
