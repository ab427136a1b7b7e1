package fulfillment_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/fulfillment"
)

func TestDeletion_SoftThenHardKeepsStock(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 5)
	f.seedOrder(t, "o1", domain.OrderStatusPending, line{"p1", 3})

	_, err := f.engine.Transition(f.ctx, "o1", domain.OrderStatusCompleted)
	require.NoError(t, err)
	require.Equal(t, int64(2), f.stock(t, "p1"))

	require.NoError(t, f.deletion.SoftDelete(f.ctx, "o1"))
	_, err = f.orders.Get(f.ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	archived := f.order(t, "o1")
	require.NotNil(t, archived.DeletedAt)
	assert.Equal(t, fixedNow, *archived.DeletedAt)
	assert.Len(t, archived.Items, 1)

	require.NoError(t, f.deletion.HardDelete(f.ctx, "o1"))
	_, err = f.orders.GetIncludingDeleted(f.ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Equal(t, int64(2), f.stock(t, "p1"))

	var purged *domain.OutboxMessage
	for _, m := range f.outbox.AllPending() {
		if m.EventType == domain.EventOrderPurged {
			m := m
			purged = &m
		}
	}
	require.NotNil(t, purged)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(purged.Payload, &payload))
	assert.Equal(t, "30.00", payload["total"])
	assert.Equal(t, true, payload["archived"])

	events, err := f.timeline.List("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.EventOrderPurged, events[len(events)-1].Type)
}

func TestDeletion_OnlyCompletedOrders(t *testing.T) {
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			f.seedProduct(t, "p1", 5)
			f.seedOrder(t, "o1", status, line{"p1", 1})

			err := f.deletion.SoftDelete(f.ctx, "o1")
			assert.ErrorIs(t, err, domain.ErrInvalidState)
			assert.Contains(t, err.Error(), "only completed orders may be deleted")

			err = f.deletion.HardDelete(f.ctx, "o1")
			assert.ErrorIs(t, err, domain.ErrOrderNotCompleted)

			o := f.order(t, "o1")
			assert.Nil(t, o.DeletedAt)
			assert.Len(t, o.Items, 1)
		})
	}
}

func TestDeletion_HardDeleteWithoutArchive(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "o1", domain.OrderStatusCompleted, line{"p1", 1})

	require.NoError(t, f.deletion.HardDelete(f.ctx, "o1"))
	_, err := f.orders.GetIncludingDeleted(f.ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestDeletion_NotFound(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "o1", domain.OrderStatusCompleted, line{"p1", 1})
	require.NoError(t, f.deletion.SoftDelete(f.ctx, "o1"))

	assert.ErrorIs(t, f.deletion.SoftDelete(f.ctx, "o1"), domain.ErrOrderNotFound)
	assert.ErrorIs(t, f.deletion.SoftDelete(f.ctx, "missing"), domain.ErrOrderNotFound)
	assert.ErrorIs(t, f.deletion.HardDelete(f.ctx, "missing"), domain.ErrOrderNotFound)
	assert.ErrorIs(t, f.deletion.HardDelete(f.ctx, ""), domain.ErrOrderIDRequired)
}

// purgingRepo фиксирует, что политика использует транзакционное удаление, если оно есть.
type purgingRepo struct {
	domain.OrderRepository
	purged []string
}

func (r *purgingRepo) Purge(ctx context.Context, id string) error {
	r.purged = append(r.purged, id)
	if err := r.OrderRepository.DeleteItems(ctx, id); err != nil {
		return err
	}
	return r.OrderRepository.HardDelete(ctx, id)
}

func TestDeletion_UsesPurgerWhenAvailable(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "o1", domain.OrderStatusCompleted, line{"p1", 1})

	repo := &purgingRepo{OrderRepository: f.orders}
	policy := fulfillment.NewDeletionPolicy(repo, fulfillment.WithOutbox(f.outbox))

	require.NoError(t, policy.HardDelete(f.ctx, "o1"))
	assert.Equal(t, []string{"o1"}, repo.purged)
}
